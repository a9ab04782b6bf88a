// Package metrics counts pseudonymization work with Prometheus collectors.
//
// pseudokit is a batch tool, so there is no scrape endpoint: the registry is
// written once per invocation in the node_exporter textfile format when the
// operator passes --metrics-file. All methods are safe on a nil *Metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one invocation.
type Metrics struct {
	registry *prometheus.Registry

	columns       *prometheus.CounterVec
	values        *prometheus.CounterVec
	keys          prometheus.Counter
	mappings      prometheus.Counter
	reverted      prometheus.Counter
	suppressed    prometheus.Counter
	runs          *prometheus.CounterVec
	runDurationMs *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		columns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pseudokit_columns_processed_total",
			Help: "The total number of columns or text categories pseudonymized",
		}, []string{"strategy"}),
		values: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pseudokit_values_pseudonymized_total",
			Help: "The total number of values replaced by a pseudonym",
		}, []string{"strategy"}),
		keys: f.NewCounter(prometheus.CounterOpts{
			Name: "pseudokit_keys_generated_total",
			Help: "The total number of secret keys generated",
		}),
		mappings: f.NewCounter(prometheus.CounterOpts{
			Name: "pseudokit_mappings_saved_total",
			Help: "The total number of mapping tables persisted",
		}),
		reverted: f.NewCounter(prometheus.CounterOpts{
			Name: "pseudokit_values_reverted_total",
			Help: "The total number of pseudonyms restored to their original value",
		}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "pseudokit_rows_suppressed_total",
			Help: "The total number of rows dropped by k-anonymity generalization",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pseudokit_runs_total",
			Help: "The total number of jobs by mode and outcome",
		}, []string{"mode", "status"}),
		runDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pseudokit_run_duration_milliseconds",
			Help:    "Job wall time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"mode"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ColumnProcessed counts one column and its values.
func (m *Metrics) ColumnProcessed(strategy string, values int) {
	if m == nil {
		return
	}
	m.columns.WithLabelValues(strategy).Inc()
	m.values.WithLabelValues(strategy).Add(float64(values))
}

// KeyGenerated counts one generated key.
func (m *Metrics) KeyGenerated() {
	if m == nil {
		return
	}
	m.keys.Inc()
}

// MappingSaved counts one persisted mapping table.
func (m *Metrics) MappingSaved() {
	if m == nil {
		return
	}
	m.mappings.Inc()
}

// Reverted counts restored values.
func (m *Metrics) Reverted(n int) {
	if m == nil {
		return
	}
	m.reverted.Add(float64(n))
}

// Suppressed counts rows removed by generalization.
func (m *Metrics) Suppressed(n int) {
	if m == nil {
		return
	}
	m.suppressed.Add(float64(n))
}

// RunFinished counts a job and observes its duration.
func (m *Metrics) RunFinished(mode string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.runs.WithLabelValues(mode, status).Inc()
	m.runDurationMs.WithLabelValues(mode).Observe(float64(d.Milliseconds()))
}

// WriteTextfile writes the registry to path in the textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
