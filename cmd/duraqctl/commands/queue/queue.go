// Package queue implements queue management commands for duraqctl.
package queue

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for queue management.
var Cmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue management",
	Long: `Inspect and manage queues on the duraqd broker.

Examples:
  # List all queues
  duraqctl queue list

  # Get stats for one queue
  duraqctl queue get events

  # Flush a queue
  duraqctl queue flush events

  # Sweep expired items from a queue
  duraqctl queue flush-expired events

  # Flush every queue
  duraqctl queue flush-all`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(flushCmd)
	Cmd.AddCommand(flushExpiredCmd)
	Cmd.AddCommand(flushAllCmd)
}
