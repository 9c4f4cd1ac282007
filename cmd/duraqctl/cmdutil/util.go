// Package cmdutil provides shared utilities for duraqctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/duraqio/duraq/internal/brokerclient"
	"github.com/duraqio/duraq/internal/cli/output"
	"github.com/duraqio/duraq/internal/cli/prompt"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
	NoColor   bool
	Verbose   bool
}

// defaultServerURL is used when neither --server nor DURAQ_SERVER is set.
const defaultServerURL = "http://localhost:9200"

// ResolvedServerURL returns the broker URL duraqctl would connect to,
// applying the same --server/DURAQ_SERVER/default fallback as GetClient.
func ResolvedServerURL() string {
	url := Flags.ServerURL
	if url == "" {
		url = os.Getenv("DURAQ_SERVER")
	}
	if url == "" {
		url = defaultServerURL
	}
	return url
}

// GetClient builds a brokerclient.Client from the global --server/--token
// flags, falling back to the DURAQ_SERVER/DURAQ_TOKEN environment
// variables.
func GetClient() *brokerclient.Client {
	url := ResolvedServerURL()

	token := Flags.Token
	if token == "" {
		token = os.Getenv("DURAQ_TOKEN")
	}

	client := brokerclient.New(url)
	if token != "" {
		client = client.WithToken(token)
	}
	return client
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses
// the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// RunWithConfirmation prompts for confirmation (unless force is true) and
// runs actionFn, printing successMsg on completion.
func RunWithConfirmation(label, successMsg string, force bool, actionFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(label, force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := actionFn(); err != nil {
		return err
	}

	PrintSuccess(successMsg)
	return nil
}

// HandleAbort checks if err is an abort (Ctrl+C) and prints a message.
// Returns nil for abort, otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
