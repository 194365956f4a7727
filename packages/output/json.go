package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/export/metrics"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID     string        `json:"runId"`
	Summary   JSONSummary   `json:"summary"`
	Filter    JSONFilter    `json:"filter"`
	Tests     []JSONTest    `json:"tests"`
	Durations JSONDurations `json:"durations"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  float64       `json:"duration"`
	Time      string        `json:"time"`
}

// JSONSummary represents the run summary
type JSONSummary struct {
	Total    int  `json:"total"`
	Passed   int  `json:"passed"`
	Failed   int  `json:"failed"`
	Skipped  int  `json:"skipped"`
	Panicked int  `json:"panicked"`
	Invalid  int  `json:"invalid"`
	Success  bool `json:"success"`
}

// JSONFilter records the selection the run was made with
type JSONFilter struct {
	MinLevel int    `json:"minLevel"`
	Pattern  string `json:"pattern,omitempty"`
}

// JSONDurations holds percentiles over the tests that ran, in milliseconds
type JSONDurations struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

// JSONTest represents a single test result
type JSONTest struct {
	Name        string   `json:"name"`
	Level       int      `json:"level"`
	State       string   `json:"state"`
	SkipReason  string   `json:"skipReason,omitempty"`
	Duration    float64  `json:"duration"`
	Messages    []string `json:"messages,omitempty"`
	Panic       string   `json:"panic,omitempty"`
	LaunchError string   `json:"launchError,omitempty"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer    io.Writer
	output    JSONOutput
	collector *metrics.Collector
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:    os.Stdout,
		output:    JSONOutput{Tests: make([]JSONTest, 0)},
		collector: metrics.NewCollector(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	f.output.RunID = result.ID
	f.output.Filter = JSONFilter{MinLevel: result.MinLevel, Pattern: result.Pattern}
	f.collector.RecordRun(result)

	for _, r := range result.Results {
		test := JSONTest{
			Name:       r.Name,
			Level:      r.Level,
			State:      r.State.String(),
			SkipReason: r.SkipReason,
			Duration:   float64(r.Duration) / float64(time.Millisecond),
			Messages:   cleanMessages(r.Messages),
			Panic:      r.Panic,
		}
		if r.LaunchError != nil {
			test.LaunchError = r.LaunchError.Error()
		}

		f.output.Tests = append(f.output.Tests, test)
	}

	f.output.Summary.Total += result.Total()
	f.output.Summary.Passed += result.Passed
	f.output.Summary.Failed += result.Failed
	f.output.Summary.Skipped += result.Skipped
	f.output.Summary.Panicked += result.Panicked
	f.output.Summary.Invalid += result.Invalid
}

func (f *JSONFormatter) FormatError(err error) {
	f.output.Errors = append(f.output.Errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	agg := f.collector.GetAggregate()
	f.output.Durations = JSONDurations{
		P50: agg.P50DurationMs,
		P95: agg.P95DurationMs,
		P99: agg.P99DurationMs,
		Max: agg.MaxDurationMs,
	}

	s := &f.output.Summary
	s.Success = s.Failed == 0 && s.Panicked == 0 && s.Invalid == 0 && len(f.output.Errors) == 0

	f.output.Duration = float64(totalDuration.Milliseconds())
	f.output.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}
