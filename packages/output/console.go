package output

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// stateColor picks the color a state is painted with.
func stateColor(s status.State) *color.Color {
	switch s {
	case status.Passed:
		return color.New(color.FgGreen)
	case status.Skipped:
		return color.New(color.FgYellow)
	case status.Failed:
		return color.New(color.FgRed)
	case status.Panicked:
		return color.New(color.FgRed, color.Bold)
	}
	return color.New(color.FgMagenta)
}

// FormatResult prints the SUMMARY listing: one tab-indented line per
// registered test with the state right-aligned in eight columns.
func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(f.writer, "SUMMARY:\n")
	for _, r := range result.Results {
		state := stateColor(r.State).Sprint(fmt.Sprintf("%8s", r.State))
		fmt.Fprintf(f.writer, "\t%s: %s", state, r.Name)
		if f.verbose && r.State.Valid() && r.State != status.Skipped {
			fmt.Fprintf(f.writer, " %s", cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
		}
		fmt.Fprintf(f.writer, "\n")

		if !f.verbose {
			continue
		}
		if r.SkipReason != "" {
			fmt.Fprintf(f.writer, "\t          %s\n", faint(r.SkipReason))
		}
		for _, m := range r.Messages {
			fmt.Fprintf(f.writer, "\t          %s %s\n", faint("|"), m)
		}
		if r.Panic != "" {
			fmt.Fprintf(f.writer, "\t          %s %s\n", faint("panic:"), r.Panic)
		}
		if r.LaunchError != nil {
			fmt.Fprintf(f.writer, "\t          %s %v\n", faint("launch:"), r.LaunchError)
		}
	}

	if !f.verbose {
		return
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	counts := []struct {
		n     int
		label string
		state status.State
	}{
		{result.Passed, "passed", status.Passed},
		{result.Failed, "failed", status.Failed},
		{result.Panicked, "panicked", status.Panicked},
		{result.Skipped, "skipped", status.Skipped},
		{result.Invalid, "invalid", status.Unset},
	}
	for _, c := range counts {
		if c.n > 0 {
			fmt.Fprintf(f.writer, "%s, ", stateColor(c.state).Sprintf("%d %s", c.n, c.label))
		}
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Total())
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "Run:   %s\n", result.ID)
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	if !f.verbose {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n\n", bold("partest"), version)
}
