package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/cmd/duraqctl/cmdutil"
	"github.com/duraqio/duraq/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show broker status",
	Long: `Display the status of the connected duraqd broker.

Checks the admin API's health endpoints and displays liveness,
uptime, and the current up/readonly/quiescent state.

Examples:
  # Check status of connected broker
  duraqctl status

  # Output as JSON
  duraqctl status -o json`,
	RunE: runStatus,
}

// BrokerStatus represents the broker status for display.
type BrokerStatus struct {
	Server    string `json:"server" yaml:"server"`
	Reachable bool   `json:"reachable" yaml:"reachable"`
	State     string `json:"state,omitempty" yaml:"state,omitempty"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()

	status := BrokerStatus{Server: cmdutil.ResolvedServerURL(), Reachable: false}

	liveness, err := client.Liveness()
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Reachable = true
		status.Service = liveness.Service
		status.StartedAt = liveness.StartedAt
		status.Uptime = liveness.Uptime

		if state, stateErr := client.Status(); stateErr == nil {
			status.State = state
		}
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status BrokerStatus) {
	fmt.Println()
	fmt.Println("duraqd Broker Status")
	fmt.Println("=====================")
	fmt.Println()
	fmt.Printf("  Server:     %s\n", status.Server)

	switch {
	case status.Reachable && status.State == "up":
		fmt.Printf("  Status:     \033[32m● %s\033[0m\n", status.State)
	case status.Reachable:
		fmt.Printf("  Status:     \033[33m● %s\033[0m\n", status.State)
	default:
		fmt.Println("  Status:     \033[31m○ unreachable\033[0m")
	}

	if status.Service != "" {
		fmt.Printf("  Service:    %s\n", status.Service)
	}
	if status.StartedAt != "" {
		fmt.Printf("  Started:    %s\n", status.StartedAt)
	}
	if status.Uptime != "" {
		fmt.Printf("  Uptime:     %s\n", status.Uptime)
	}
	if status.Error != "" {
		fmt.Printf("  Error:      %s\n", status.Error)
	}
	fmt.Println()
}
