package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter renders a bordered table, one row per registered test
type TableFormatter struct {
	writer  io.Writer
	noColor bool
	verbose bool
}

type TableOption func(*TableFormatter)

func NewTableFormatter(opts ...TableOption) *TableFormatter {
	f := &TableFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TableWithWriter(w io.Writer) TableOption {
	return func(f *TableFormatter) {
		f.writer = w
	}
}

func TableWithNoColor(nc bool) TableOption {
	return func(f *TableFormatter) {
		f.noColor = nc
	}
}

// TableWithVerbose adds a column with the messages each test printed.
func TableWithVerbose(v bool) TableOption {
	return func(f *TableFormatter) {
		f.verbose = v
	}
}

func (f *TableFormatter) stateText(s status.State) string {
	if f.noColor {
		return s.String()
	}
	var c text.Colors
	switch s {
	case status.Passed:
		c = text.Colors{text.FgGreen}
	case status.Skipped:
		c = text.Colors{text.FgYellow}
	case status.Failed:
		c = text.Colors{text.FgRed}
	case status.Panicked:
		c = text.Colors{text.FgRed, text.Bold}
	default:
		c = text.Colors{text.FgMagenta}
	}
	return c.Sprint(s.String())
}

func (f *TableFormatter) FormatResult(result *runner.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(f.writer)
	t.SetTitle("partest run %s", result.ID)

	header := table.Row{"#", "Test", "Level", "State", "Duration", "Note"}
	if f.verbose {
		header = append(header, "Messages")
	}
	t.AppendHeader(header)

	for i, r := range result.Results {
		duration := "-"
		if r.State != status.Skipped {
			duration = r.Duration.Round(time.Microsecond).String()
		}
		note := r.SkipReason
		switch {
		case r.LaunchError != nil:
			note = "launch failed"
		case r.Panic != "":
			note = r.Panic
		}
		row := table.Row{i + 1, r.Name, r.Level, f.stateText(r.State), duration, note}
		if f.verbose {
			row = append(row, strings.Join(r.Messages, "\n"))
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"", "Total", "", fmt.Sprintf("%d/%d passed", result.Passed, result.Total()),
		result.Duration.Round(time.Millisecond).String(), ""})

	if f.noColor {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleColoredDark)
	}
	t.Render()
}

func (f *TableFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "Error: %v\n", err)
}

func (f *TableFormatter) FormatHeader(version string) {
	// Title row carries the run identity
}
