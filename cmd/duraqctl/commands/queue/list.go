package queue

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/cmd/duraqctl/cmdutil"
	"github.com/duraqio/duraq/internal/brokerclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known queue",
	Long: `List every queue the broker has created, along with its stats.

Examples:
  duraqctl queue list
  duraqctl queue list -o json`,
	RunE: runList,
}

// summaryList renders a slice of queue summaries as a table.
type summaryList []brokerclient.QueueSummary

func (l summaryList) Headers() []string {
	return []string{"NAME", "ITEMS", "RESERVED", "BYTES"}
}

func (l summaryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.Name,
			s.Stats["items"],
			s.Stats["reserved"],
			s.Stats["bytes"],
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()

	queues, err := client.ListQueues()
	if err != nil {
		return fmt.Errorf("failed to list queues: %w", err)
	}

	sort.Slice(queues, func(i, j int) bool { return queues[i].Name < queues[j].Name })

	return cmdutil.PrintOutput(os.Stdout, queues, len(queues) == 0, "No queues.", summaryList(queues))
}
