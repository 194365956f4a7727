package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/config"
	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/export/metrics"
	"github.com/abdul-hamid-achik/partest/packages/history"
	"github.com/abdul-hamid-achik/partest/packages/output"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the registered tests",
	Long: `Run every eligible registered test concurrently and print a summary.

A test is eligible when its level is at least --level and its name matches
--regex (case-insensitive, unanchored). Ineligible tests are reported as
SKIPPED without running.

Examples:
  partest run
  partest run -l 1 -r '^net'
  partest run -d -r disk
  partest run -o junit --output-file report.xml
  partest run --metrics-file partest.prom --history runs.db`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

var (
	dryRunFlag      bool
	levelFlag       int
	patternFlag     string
	verboseFlag     bool
	outputFlag      string
	outputFileFlag  string
	metricsFileFlag string
	historyFlag     string
)

func init() {
	// Selection flags
	runCmd.Flags().BoolVarP(&dryRunFlag, "dry-run", "d", false, "Print the names of eligible tests and exit without running them")
	addSelectionFlags(runCmd)

	// Output flags
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show durations, messages and totals (env: PARTEST_VERBOSE)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "console", "Output format: console, table, json, junit, tap (env: PARTEST_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout) (env: PARTEST_OUTPUT_FILE)")

	// Reporting flags
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", "", "Write metrics to file; .json for JSON, anything else for a Prometheus textfile (env: PARTEST_METRICS_FILE)")
	runCmd.Flags().StringVar(&historyFlag, "history", "", "Append the run to this SQLite database (env: PARTEST_HISTORY_DB)")
}

// addSelectionFlags registers the flags shared by run and list.
func addSelectionFlags(c *cobra.Command) {
	c.Flags().IntVarP(&levelFlag, "level", "l", 0, "Skip tests whose level is below this threshold (env: PARTEST_LEVEL)")
	c.Flags().StringVarP(&patternFlag, "regex", "r", "", "Skip tests whose name does not match this extended regular expression (env: PARTEST_PATTERN)")
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// newFormatter creates the formatter named by cfg.Output writing to w.
func newFormatter(cfg *config.Config, w io.Writer, color bool) Formatter {
	switch strings.ToLower(cfg.Output) {
	case "json":
		return output.NewJSONFormatter(output.JSONWithWriter(w))
	case "junit":
		return output.NewJUnitFormatter(output.JUnitWithWriter(w))
	case "tap":
		return output.NewTAPFormatter(output.TAPWithWriter(w))
	case "table":
		return output.NewTableFormatter(
			output.TableWithWriter(w),
			output.TableWithNoColor(!color),
			output.TableWithVerbose(cfg.GetVerbose()),
		)
	default: // "console"
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(!color),
		)
	}
}

// streamsTestOutput reports whether test bodies may print to the report
// stream; the machine readable formats would be corrupted by it.
func streamsTestOutput(format string) bool {
	switch strings.ToLower(format) {
	case "json", "junit", "tap":
		return false
	}
	return true
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	logger := newLogger(cfg, stderr)

	// Setup output writer
	var outWriter io.Writer = cmd.OutOrStdout()
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return exitErr(ExitReportError, "cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	}

	// The dry-run listing always goes to the output, without a formatter
	testOutput := outWriter
	if !dryRunFlag && !streamsTestOutput(cfg.Output) {
		testOutput = stderr
	}

	var flags runner.Flags
	if dryRunFlag {
		flags |= runner.FlagDryRun
	}

	// An interrupt stops the wait; the tests themselves are never cancelled
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.NewRunner(&runner.Config{
		Registry: suite,
		Flags:    flags,
		MinLevel: cfg.GetMinLevel(),
		Pattern:  cfg.Pattern,
		Output:   testOutput,
		Logger:   logger,
		Exit:     exitFunc,
		OnComplete: func(res *runner.TestResult) {
			logger.Trace("completed", "test", res.Name, "state", res.State)
		},
	})

	formatter := newFormatter(cfg, outWriter, useColor(cfg, outWriter))
	if !dryRunFlag {
		formatter.FormatHeader(version)
	}

	start := time.Now()
	result, err := r.Run(ctx)
	switch {
	case errors.Is(err, runner.ErrDryRunExit):
		return nil
	case errors.Is(err, runner.ErrPattern):
		return reportFailure(formatter, start, &ExitError{Code: ExitPatternError, Err: err})
	case errors.Is(err, runner.ErrInvalidArgument):
		return reportFailure(formatter, start, &ExitError{Code: ExitUsageError, Err: err})
	case err != nil:
		// Interrupted waits still produce a partial result worth reporting
		if result == nil {
			return reportFailure(formatter, start, &ExitError{Code: ExitTestFailure, Err: err})
		}
		formatter.FormatError(err)
	}

	formatter.FormatResult(result)
	if f, ok := formatter.(Flushable); ok {
		if ferr := f.Flush(time.Since(start)); ferr != nil {
			return exitErr(ExitReportError, "writing report: %w", ferr)
		}
	}

	if rerr := writeReports(cmd.Context(), cfg, result, logger); rerr != nil {
		return rerr
	}

	if err != nil {
		return &ExitError{Code: ExitTestFailure, Err: err}
	}
	if result.HasFailures() {
		return &ExitError{Code: ExitTestFailure, Err: errTestsFailed, Quiet: true}
	}
	return nil
}

// reportFailure lets the formatter render a run-level error and returns ee.
func reportFailure(formatter Formatter, start time.Time, ee *ExitError) error {
	formatter.FormatError(ee.Err)
	if f, ok := formatter.(Flushable); ok {
		_ = f.Flush(time.Since(start))
	}
	return ee
}

// writeReports exports metrics and appends the run to the history database.
func writeReports(ctx context.Context, cfg *config.Config, result *runner.RunResult, logger hclog.Logger) error {
	if cfg.MetricsFile != "" {
		var exporter metrics.Exporter
		if strings.EqualFold(filepath.Ext(cfg.MetricsFile), ".json") {
			exporter = metrics.NewJSONExporter(
				metrics.WithJSONFile(cfg.MetricsFile),
				metrics.WithJSONStart(result.Started),
			)
		} else {
			exporter = metrics.NewPrometheusExporter(metrics.WithTextfile(cfg.MetricsFile))
		}

		collector := metrics.NewCollector(exporter)
		collector.RecordRun(result)
		if err := collector.Flush(); err != nil {
			return exitErr(ExitReportError, "exporting metrics: %w", err)
		}
		if err := collector.Close(); err != nil {
			return exitErr(ExitReportError, "exporting metrics: %w", err)
		}
		logger.Debug("metrics written", "path", cfg.MetricsFile)
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return exitErr(ExitReportError, "opening history: %w", err)
		}
		defer store.Close()

		if err := store.Record(ctx, result); err != nil {
			return exitErr(ExitReportError, "recording history: %w", err)
		}
		logger.Debug("run recorded", "db", cfg.HistoryDB, "run", result.ID)
	}

	return nil
}
