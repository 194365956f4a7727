package metrics

import (
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "partest"

// PrometheusExporter records test outcomes into a private Prometheus
// registry and writes it in the node_exporter textfile format on Close.
type PrometheusExporter struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	path     string
	closed   bool

	testsTotal   *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	testState    *prometheus.GaugeVec
	runDuration  prometheus.Gauge
	quantiles    *prometheus.GaugeVec
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithTextfile sets the file written on Close.
func WithTextfile(path string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.path = path
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tests_total",
			Help:      "Count of tests by final state",
		}, []string{"state"}),
		testDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of test bodies that ran",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{"state"}),
		testState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "test_state",
			Help:      "Final state of each test (1=passed 2=skipped 3=failed 4=panicked)",
		}, []string{"test"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the whole run",
		}),
		quantiles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "test_duration_quantile_seconds",
			Help:      "Duration percentiles of test bodies that ran",
		}, []string{"quantile"}),
	}

	p.registry.MustRegister(p.testsTotal, p.testDuration, p.testState, p.runDuration, p.quantiles)

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Registry exposes the underlying registry.
func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

// ExportSingle records a single test metric
func (p *PrometheusExporter) ExportSingle(m *TestMetrics) error {
	p.testsTotal.WithLabelValues(m.State).Inc()
	if m.Ran {
		p.testDuration.WithLabelValues(m.State).Observe(m.DurationMs / 1000)
	}
	if st, ok := stateValue(m.State); ok {
		p.testState.WithLabelValues(m.TestName).Set(st)
	}
	return nil
}

// Export sets the run level gauges.
func (p *PrometheusExporter) Export(agg *AggregateMetrics) error {
	p.runDuration.Set(agg.RunDurationMs / 1000)
	if agg.RanTests > 0 {
		p.quantiles.WithLabelValues("0.5").Set(agg.P50DurationMs / 1000)
		p.quantiles.WithLabelValues("0.95").Set(agg.P95DurationMs / 1000)
		p.quantiles.WithLabelValues("0.99").Set(agg.P99DurationMs / 1000)
	}
	return nil
}

// Close writes the textfile, if one was configured. Subsequent calls do nothing.
func (p *PrometheusExporter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.path == "" {
		p.closed = true
		return nil
	}
	p.closed = true

	if err := prometheus.WriteToTextfile(p.path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func stateValue(name string) (float64, bool) {
	st, ok := status.Parse(name)
	return float64(st), ok
}
