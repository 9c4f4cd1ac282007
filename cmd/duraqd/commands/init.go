package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample duraqd configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/duraq/config.yaml.
Use --config to specify a custom path.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Edit the configuration file to customize your setup")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Start the server with: duraqd start")
	fmt.Fprintf(cmd.OutOrStdout(), "  3. Or specify custom config: duraqd start --config %s\n", configPath)

	return nil
}
