// Package metrics provides metrics export functionality for partest runs.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
)

// TestMetrics represents the metrics of a single test execution
type TestMetrics struct {
	TestName     string    `json:"test_name"`
	Level        int       `json:"level"`
	State        string    `json:"state"`
	DurationMs   float64   `json:"duration_ms"`
	Passed       bool      `json:"passed"`
	Ran          bool      `json:"ran"`
	MessageCount int       `json:"message_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// AggregateMetrics represents aggregated metrics over a run
type AggregateMetrics struct {
	TotalTests      int64            `json:"total_tests"`
	RanTests        int64            `json:"ran_tests"`
	TotalDurationMs float64          `json:"total_duration_ms"`
	MinDurationMs   float64          `json:"min_duration_ms"`
	MaxDurationMs   float64          `json:"max_duration_ms"`
	AvgDurationMs   float64          `json:"avg_duration_ms"`
	P50DurationMs   float64          `json:"p50_duration_ms"`
	P95DurationMs   float64          `json:"p95_duration_ms"`
	P99DurationMs   float64          `json:"p99_duration_ms"`
	ByState         map[string]int64 `json:"by_state"`
	RunID           string           `json:"run_id,omitempty"`
	RunDurationMs   float64          `json:"run_duration_ms"`
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export exports metrics to the target destination
	Export(metrics *AggregateMetrics) error

	// ExportSingle exports a single test metric
	ExportSingle(metric *TestMetrics) error

	// Close closes the exporter and flushes any buffered data
	Close() error
}

// FromResult converts a runner result into a metric point.
func FromResult(r *runner.TestResult, at time.Time) *TestMetrics {
	return &TestMetrics{
		TestName:     r.Name,
		Level:        r.Level,
		State:        r.State.String(),
		DurationMs:   float64(r.Duration) / float64(time.Millisecond),
		Passed:       r.State == status.Passed,
		Ran:          r.State != status.Skipped && r.State != status.Unset,
		MessageCount: len(r.Messages),
		Timestamp:    at,
	}
}

// Collector collects metrics from test runs
type Collector struct {
	mu        sync.Mutex
	metrics   []*TestMetrics
	aggregate *AggregateMetrics
	exporters []Exporter

	// Durations of tests that actually ran, in microseconds
	histogram *hdrhistogram.Histogram
}

// NewCollector creates a new metrics collector
func NewCollector(exporters ...Exporter) *Collector {
	return &Collector{
		metrics:   make([]*TestMetrics, 0),
		exporters: exporters,
		aggregate: &AggregateMetrics{
			ByState: make(map[string]int64),
		},
		// 1us to 1h, 3 significant digits
		histogram: hdrhistogram.New(1, 3_600_000_000, 3),
	}
}

// Record records a test metric
func (c *Collector) Record(m *TestMetrics) {
	c.mu.Lock()
	c.metrics = append(c.metrics, m)
	c.updateAggregate(m)
	c.mu.Unlock()

	// Export to all exporters
	for _, exp := range c.exporters {
		_ = exp.ExportSingle(m)
	}
}

// RecordRun records every test of a finished run.
func (c *Collector) RecordRun(result *runner.RunResult) {
	at := result.Started.Add(result.Duration)
	for _, r := range result.Results {
		c.Record(FromResult(r, at))
	}

	c.mu.Lock()
	c.aggregate.RunID = result.ID
	c.aggregate.RunDurationMs = float64(result.Duration) / float64(time.Millisecond)
	c.mu.Unlock()
}

func (c *Collector) updateAggregate(m *TestMetrics) {
	c.aggregate.TotalTests++
	c.aggregate.ByState[m.State]++

	// Skipped tests never ran, so their zero duration would skew the figures
	if !m.Ran {
		return
	}

	c.aggregate.RanTests++
	c.aggregate.TotalDurationMs += m.DurationMs

	if c.aggregate.RanTests == 1 {
		c.aggregate.MinDurationMs = m.DurationMs
		c.aggregate.MaxDurationMs = m.DurationMs
	} else {
		if m.DurationMs < c.aggregate.MinDurationMs {
			c.aggregate.MinDurationMs = m.DurationMs
		}
		if m.DurationMs > c.aggregate.MaxDurationMs {
			c.aggregate.MaxDurationMs = m.DurationMs
		}
	}

	c.aggregate.AvgDurationMs = c.aggregate.TotalDurationMs / float64(c.aggregate.RanTests)

	us := int64(m.DurationMs * 1000)
	if us < 1 {
		us = 1
	}
	_ = c.histogram.RecordValue(us)
}

// GetAggregate returns a snapshot of the aggregated metrics with percentiles filled in
func (c *Collector) GetAggregate() *AggregateMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	agg := *c.aggregate
	agg.ByState = make(map[string]int64, len(c.aggregate.ByState))
	for k, v := range c.aggregate.ByState {
		agg.ByState[k] = v
	}
	if c.histogram.TotalCount() > 0 {
		agg.P50DurationMs = float64(c.histogram.ValueAtQuantile(50)) / 1000
		agg.P95DurationMs = float64(c.histogram.ValueAtQuantile(95)) / 1000
		agg.P99DurationMs = float64(c.histogram.ValueAtQuantile(99)) / 1000
	}
	return &agg
}

// Metrics returns the recorded points in recording order.
func (c *Collector) Metrics() []*TestMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*TestMetrics(nil), c.metrics...)
}

// Flush exports all aggregated metrics
func (c *Collector) Flush() error {
	agg := c.GetAggregate()
	for _, exp := range c.exporters {
		if err := exp.Export(agg); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all exporters
func (c *Collector) Close() error {
	for _, exp := range c.exporters {
		if err := exp.Close(); err != nil {
			return err
		}
	}
	return nil
}
