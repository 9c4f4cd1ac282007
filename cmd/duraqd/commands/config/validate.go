package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the duraqd configuration file.

Checks for syntax errors, missing required fields, and invalid values.`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Server.AdminAPI.Enabled && cfg.Server.AdminAPI.JWTSecret == "" {
		warnings = append(warnings, "admin API enabled but no JWT secret configured")
	}
	if cfg.Archive.Enabled && cfg.Archive.Bucket == "" {
		warnings = append(warnings, "archival enabled but no bucket configured")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file: %s\n", displayPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Validation: OK")

	if len(warnings) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\nWarnings:")
		for _, w := range warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", w)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration summary:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  Listen address:  %s\n", cfg.Server.ListenAddr)
	fmt.Fprintf(cmd.OutOrStdout(), "  Storage path:    %s\n", cfg.Storage.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "  Fsync mode:      %s\n", cfg.Storage.FsyncMode)
	fmt.Fprintf(cmd.OutOrStdout(), "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
