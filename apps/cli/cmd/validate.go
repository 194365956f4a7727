package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Long: `Load the config file, PARTEST_* environment variables and flags, and
report every problem found without running anything.

Examples:
  partest validate
  partest validate --config ci/.partest.toml`,
	Args: cobra.NoArgs,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := configFlag
	if source == "" {
		source = "(searched working directory)"
	}
	fmt.Fprintf(out, "Valid: %s\n", source)
	fmt.Fprintf(out, "  level:   %d\n", cfg.GetMinLevel())
	fmt.Fprintf(out, "  pattern: %q\n", cfg.Pattern)
	fmt.Fprintf(out, "  output:  %s\n", cfg.Output)
	if cfg.MetricsFile != "" {
		fmt.Fprintf(out, "  metrics: %s\n", cfg.MetricsFile)
	}
	if cfg.HistoryDB != "" {
		fmt.Fprintf(out, "  history: %s\n", cfg.HistoryDB)
	}

	return nil
}
