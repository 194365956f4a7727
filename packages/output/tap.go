package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
)

// TAPFormatter formats run results in TAP (Test Anything Protocol) version 13
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
	bailOut   string
}

type tapResult struct {
	number     int
	name       string
	state      status.State
	skipReason string
	messages   []string
	panic      string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number:     f.testCount,
			name:       r.Name,
			state:      r.State,
			skipReason: r.SkipReason,
			messages:   cleanMessages(r.Messages),
			panic:      r.Panic,
		}
		if r.LaunchError != nil {
			tr.messages = append(tr.messages, "launch: "+r.LaunchError.Error())
		}
		f.results = append(f.results, tr)
	}
}

// FormatError turns a run level error into a TAP bail out.
func (f *TAPFormatter) FormatError(err error) {
	f.bailOut = err.Error()
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")

	if f.bailOut != "" && f.testCount == 0 {
		fmt.Fprintf(f.writer, "Bail out! %s\n", strings.ReplaceAll(f.bailOut, "\n", " "))
		return nil
	}

	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		switch r.state {
		case status.Passed:
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
		case status.Skipped:
			reason := r.skipReason
			if reason == "" {
				reason = "filtered"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, r.name, reason)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  state: %s\n", escapeYAML(r.state.String()))
			if r.state == status.Panicked {
				fmt.Fprintf(f.writer, "  severity: fail\n")
			}
			if len(r.messages) > 0 {
				fmt.Fprintf(f.writer, "  messages:\n")
				for _, m := range r.messages {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(m))
				}
			}
			if r.panic != "" {
				fmt.Fprintf(f.writer, "  panic: %s\n", escapeYAML(r.panic))
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	if f.bailOut != "" {
		fmt.Fprintf(f.writer, "Bail out! %s\n", strings.ReplaceAll(f.bailOut, "\n", " "))
	}

	fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return nil
}

func escapeYAML(s string) string {
	// Simple YAML escaping - wrap in quotes if contains special chars
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`()") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
