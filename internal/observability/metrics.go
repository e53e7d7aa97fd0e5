// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec

	// Computation metrics
	ScenariosComputed prometheus.Counter
	MetricsComputed   prometheus.Counter
	MetricFailures    *prometheus.CounterVec
	SensitivityCells  prometheus.Counter

	// Ingestion metrics
	SeriesIngested    prometheus.Counter
	ScenariosIngested prometheus.Counter

	// Stream metrics
	StreamClients   prometheus.Gauge
	EventsBroadcast *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "windfarm_finance_lab"
	}

	return &Metrics{
		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of computation runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Full run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Computation metrics
		ScenariosComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compute",
			Name:      "scenarios_total",
			Help:      "Total number of scenario passes computed",
		}),
		MetricsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compute",
			Name:      "metrics_total",
			Help:      "Total number of metric results computed",
		}),
		MetricFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compute",
			Name:      "metric_failures_total",
			Help:      "Total number of failed metric computations by metric",
		}, []string{"metric_id"}),
		SensitivityCells: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compute",
			Name:      "sensitivity_cells_total",
			Help:      "Total number of sensitivity cube cells computed",
		}),

		// Ingestion metrics
		SeriesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "series_total",
			Help:      "Total number of percentile series ingested",
		}),
		ScenariosIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "scenarios_total",
			Help:      "Total number of scenario definitions ingested",
		}),

		// Stream metrics
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Current number of connected websocket clients",
		}),
		EventsBroadcast: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Total number of events broadcast by type",
		}, []string{"type"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a completed run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordStage records one stage's duration.
func RecordStage(stage string, durationSeconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordScenarioComputed increments the scenario pass counter.
func RecordScenarioComputed() {
	DefaultMetrics.ScenariosComputed.Inc()
}

// RecordMetricComputed counts one metric result, failed or not.
func RecordMetricComputed(metricID string, failed bool) {
	DefaultMetrics.MetricsComputed.Inc()
	if failed {
		DefaultMetrics.MetricFailures.WithLabelValues(metricID).Inc()
	}
}

// RecordSensitivityCells adds to the sensitivity cell counter.
func RecordSensitivityCells(n int) {
	DefaultMetrics.SensitivityCells.Add(float64(n))
}

// RecordSeriesIngested increments the ingested series counter.
func RecordSeriesIngested() {
	DefaultMetrics.SeriesIngested.Inc()
}

// RecordScenarioIngested increments the ingested scenario counter.
func RecordScenarioIngested() {
	DefaultMetrics.ScenariosIngested.Inc()
}

// UpdateStreamClients updates the connected client gauge.
func UpdateStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}

// RecordEventBroadcast counts one broadcast event.
func RecordEventBroadcast(eventType string) {
	DefaultMetrics.EventsBroadcast.WithLabelValues(eventType).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSuccessfulRun updates the last successful run timestamp.
func RecordSuccessfulRun(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}
