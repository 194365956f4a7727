package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/partest/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a default .partest.yaml",
	Long: `Write a .partest.yaml holding the default configuration.

Examples:
  partest init
  partest init ./ci --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
}

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	configFile := filepath.Join(dir, config.ConfigFilenames[0])
	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return exitErr(ExitUsageError, "file already exists: %s (use --force to overwrite)", configFile)
		}
	}

	if err := config.DefaultConfig().SaveConfig(configFile); err != nil {
		return exitErr(ExitConfigError, "writing %s: %w", configFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configFile)
	return nil
}
