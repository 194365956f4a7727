package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/partest/packages/core/config"
	"github.com/abdul-hamid-achik/partest/packages/core/filter"
	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	// suite is the registry the commands operate on
	suite = registry.Default

	// exitFunc ends the process after a dry run
	exitFunc = os.Exit
)

var (
	configFlag   string
	envFileFlag  string
	logLevelFlag string
	noColorFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "partest",
	Short: "Run compiled-in tests concurrently, one goroutine each.",
	Long: `partest runs every registered test on its own goroutine, records how
each one ended (PASSED, SKIPPED, FAILED or PANICKED) and prints a summary.

Tests are selected by a minimum level and a case-insensitive extended
regular expression matched against their names.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(execute(os.Args[1:]))
}

// execute runs the root command with args and returns the exit code.
func execute(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err != nil {
		var ee *ExitError
		if !errors.As(err, &ee) || !ee.Quiet {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(rootCmd.ErrOrStderr(), "%s %v\n", red("Error:"), err)
		}
	}
	return exitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (default: search the working directory)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load PARTEST_* variables from a .env file; the real environment wins")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level: trace, debug, info, warn, error, off (env: PARTEST_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output (env: PARTEST_NO_COLOR)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("%w\n\n%s", err, cmd.UsageString())}
	})

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// loadSettings layers defaults, the config file, PARTEST_* variables and
// explicitly set flags, in increasing precedence.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	fileCfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, exitErr(ExitConfigError, "loading config: %w", err)
	}

	if envFileFlag != "" {
		if err := config.ExportEnvFile(envFileFlag); err != nil {
			return nil, exitErr(ExitConfigError, "%w", err)
		}
	}

	envCfg, err := config.FromEnv()
	if err != nil {
		return nil, exitErr(ExitConfigError, "%w", err)
	}

	cfg := fileCfg.Merge(envCfg).Merge(flagOverrides(cmd))
	// Merge skips empty strings, so an explicit -r '' is applied here to
	// clear a pattern set by the config file or environment.
	if flags := cmd.Flags(); flags.Lookup("regex") != nil && flags.Changed("regex") {
		cfg.Pattern = patternFlag
	}
	if err := cfg.Validate(); err != nil {
		code := ExitConfigError
		if errors.Is(err, filter.ErrPattern) {
			code = ExitPatternError
		}
		return nil, &ExitError{Code: code, Err: err}
	}
	return cfg, nil
}

// flagOverrides collects the flags the user actually set on cmd.
func flagOverrides(cmd *cobra.Command) *config.Config {
	flags := cmd.Flags()
	o := &config.Config{}

	if flags.Changed("log-level") {
		o.LogLevel = logLevelFlag
	}
	if flags.Changed("no-color") {
		o.NoColor = config.BoolPtr(noColorFlag)
	}
	if flags.Lookup("level") != nil && flags.Changed("level") {
		o.MinLevel = config.IntPtr(levelFlag)
	}
	if flags.Lookup("regex") != nil && flags.Changed("regex") {
		o.Pattern = patternFlag
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		o.Output = strings.ToLower(outputFlag)
	}
	if flags.Lookup("output-file") != nil && flags.Changed("output-file") {
		o.OutputFile = outputFileFlag
	}
	if flags.Lookup("verbose") != nil && flags.Changed("verbose") {
		o.Verbose = config.BoolPtr(verboseFlag)
	}
	if flags.Lookup("metrics-file") != nil && flags.Changed("metrics-file") {
		o.MetricsFile = metricsFileFlag
	}
	if flags.Lookup("history") != nil && flags.Changed("history") {
		o.HistoryDB = historyFlag
	}
	return o
}

func newLogger(cfg *config.Config, w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "partest",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: w,
		Color:  colorOption(cfg, w),
	})
}

func colorOption(cfg *config.Config, w io.Writer) hclog.ColorOption {
	if useColor(cfg, w) {
		return hclog.AutoColor
	}
	return hclog.ColorOff
}

// useColor reports whether w is a terminal and color was not turned off.
func useColor(cfg *config.Config, w io.Writer) bool {
	if cfg.GetNoColor() {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
