package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/cmd/duraqctl/cmdutil"
)

var flushExpiredCmd = &cobra.Command{
	Use:   "flush-expired <name>",
	Short: "Sweep expired items from a queue",
	Long: `Discard only the expired items in one queue, leaving live items intact.

Examples:
  duraqctl queue flush-expired events`,
	Args: cobra.ExactArgs(1),
	RunE: runFlushExpired,
}

func runFlushExpired(cmd *cobra.Command, args []string) error {
	name := args[0]
	client := cmdutil.GetClient()

	n, err := client.FlushExpired(name)
	if err != nil {
		return fmt.Errorf("failed to flush expired items in queue %q: %w", name, err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Flushed %d expired item(s) from queue '%s'", n, name))
	return nil
}
