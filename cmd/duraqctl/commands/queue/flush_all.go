package queue

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/cmd/duraqctl/cmdutil"
	"github.com/duraqio/duraq/internal/cli/prompt"
)

var flushAllForce bool

var flushAllCmd = &cobra.Command{
	Use:   "flush-all",
	Short: "Discard every item in every queue",
	Long: `Unconditionally discard every item in every queue on the broker.

This is a destructive operation affecting the whole broker. You must
type 'flush-all' to confirm unless --force is specified.

Examples:
  duraqctl queue flush-all --force`,
	RunE: runFlushAll,
}

func init() {
	flushAllCmd.Flags().BoolVarP(&flushAllForce, "force", "f", false, "Skip confirmation prompt")
}

func runFlushAll(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()

	if !flushAllForce {
		confirmed, err := prompt.ConfirmDanger("This will flush every queue on the broker", "flush-all")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := client.FlushAll(); err != nil {
		return fmt.Errorf("failed to flush all queues: %w", err)
	}

	cmdutil.PrintSuccess("All queues flushed")
	return nil
}
