package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/cmd/duraqctl/cmdutil"
)

var flushForce bool

var flushCmd = &cobra.Command{
	Use:   "flush <name>",
	Short: "Discard every item in a queue",
	Long: `Unconditionally discard every item in one queue.

This action is irreversible. You will be prompted for confirmation
unless --force is specified.

Examples:
  duraqctl queue flush events
  duraqctl queue flush events --force`,
	Args: cobra.ExactArgs(1),
	RunE: runFlush,
}

func init() {
	flushCmd.Flags().BoolVarP(&flushForce, "force", "f", false, "Skip confirmation prompt")
}

func runFlush(cmd *cobra.Command, args []string) error {
	name := args[0]
	client := cmdutil.GetClient()

	return cmdutil.RunWithConfirmation(
		fmt.Sprintf("Flush queue '%s'?", name),
		fmt.Sprintf("Queue '%s' flushed", name),
		flushForce,
		func() error {
			if err := client.Flush(name); err != nil {
				return fmt.Errorf("failed to flush queue %q: %w", name, err)
			}
			return nil
		},
	)
}
