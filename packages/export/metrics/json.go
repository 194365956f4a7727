package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// FormatVersion identifies the layout of JSONMetricsOutput.
const FormatVersion = "partest.metrics/v1"

// JSONExporter writes the collected points and the run summary as one JSON document
type JSONExporter struct {
	mu        sync.Mutex
	writer    io.Writer
	filePath  string
	pretty    bool
	metrics   []*TestMetrics
	startTime time.Time
}

// JSONOption is a functional option for JSONExporter
type JSONOption func(*JSONExporter)

// WithJSONWriter sets the output writer for JSON metrics
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONFile sets the output file for JSON metrics
func WithJSONFile(path string) JSONOption {
	return func(j *JSONExporter) {
		j.filePath = path
	}
}

// WithJSONPretty toggles indentation
func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

// WithJSONStart overrides the start time reported in the metadata.
func WithJSONStart(t time.Time) JSONOption {
	return func(j *JSONExporter) {
		j.startTime = t
	}
}

func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{
		metrics:   make([]*TestMetrics, 0),
		startTime: time.Now(),
		pretty:    true,
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

type JSONMetricsOutput struct {
	Metadata    JSONMetadata      `json:"metadata"`
	Summary     *AggregateMetrics `json:"summary"`
	TestResults []*TestMetrics    `json:"test_results"`
}

type JSONMetadata struct {
	RunID       string `json:"run_id,omitempty"`
	GeneratedAt string `json:"generated_at"`
	StartTime   string `json:"start_time"`
	Duration    string `json:"duration"`
	Version     string `json:"version"`
}

// Export writes the document to the configured file and writer.
func (j *JSONExporter) Export(agg *AggregateMetrics) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	output := JSONMetricsOutput{
		Metadata: JSONMetadata{
			RunID:       agg.RunID,
			GeneratedAt: time.Now().Format(time.RFC3339),
			StartTime:   j.startTime.Format(time.RFC3339),
			Duration:    time.Duration(agg.RunDurationMs * float64(time.Millisecond)).String(),
			Version:     FormatVersion,
		},
		Summary:     agg,
		TestResults: j.metrics,
	}

	var data []byte
	var err error
	if j.pretty {
		data, err = json.MarshalIndent(output, "", "  ")
	} else {
		data, err = json.Marshal(output)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if j.filePath != "" {
		if err := os.WriteFile(j.filePath, data, 0644); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	if j.writer != nil {
		if _, err := j.writer.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}

// ExportSingle buffers a point until Export
func (j *JSONExporter) ExportSingle(metric *TestMetrics) error {
	j.mu.Lock()
	j.metrics = append(j.metrics, metric)
	j.mu.Unlock()
	return nil
}

func (j *JSONExporter) Close() error {
	return nil
}
