package queue

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/cmd/duraqctl/cmdutil"
	"github.com/duraqio/duraq/internal/cli/output"
)

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show stats for one queue",
	Long: `Display the stats snapshot for a single queue.

Examples:
  duraqctl queue get events
  duraqctl queue get events -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	client := cmdutil.GetClient()

	q, err := client.GetQueue(name)
	if err != nil {
		return fmt.Errorf("failed to get queue %q: %w", name, err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, q)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, q)
	default:
		pairs := [][2]string{
			{"Name", q.Name},
			{"Items", q.Stats["items"]},
			{"Reserved", q.Stats["reserved"]},
			{"Bytes", q.Stats["bytes"]},
		}
		return output.SimpleTable(os.Stdout, pairs)
	}
}
