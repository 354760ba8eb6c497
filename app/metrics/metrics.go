// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline. Counters are labeled by portal and outcome so partial failures
// are visible without scraping logs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all the Prometheus metrics for the ingestion service.
type Metrics struct {
	PortalRunsTotal    *prometheus.CounterVec
	RowsTotal          *prometheus.CounterVec
	EnrichErrorsTotal  prometheus.Counter
	PublishErrorsTotal prometheus.Counter
	RunDurationSeconds *prometheus.HistogramVec
}

// New creates a Metrics instance registered against the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance on a specific registerer.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PortalRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "breachcomb_portal_runs_total",
			Help: "Total number of portal ingestion runs by outcome",
		}, []string{"portal", "status"}),
		RowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "breachcomb_rows_total",
			Help: "Total number of rows processed by insert outcome",
		}, []string{"portal", "outcome"}),
		EnrichErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "breachcomb_enrich_errors_total",
			Help: "Total number of enrichment hook failures",
		}),
		PublishErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "breachcomb_publish_errors_total",
			Help: "Total number of event publish failures",
		}),
		RunDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "breachcomb_run_duration_seconds",
			Help:    "Duration of portal ingestion runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"portal"}),
	}
}

// RecordRow increments the row counter for a portal and insert outcome.
func (m *Metrics) RecordRow(portal, outcome string) {
	m.RowsTotal.WithLabelValues(portal, outcome).Inc()
}

// RecordRun increments the run counter and observes the run duration.
func (m *Metrics) RecordRun(portal, status string, seconds float64) {
	m.PortalRunsTotal.WithLabelValues(portal, status).Inc()
	m.RunDurationSeconds.WithLabelValues(portal).Observe(seconds)
}
