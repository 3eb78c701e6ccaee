// Package metrics provides Prometheus metrics for the FINSIFT pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace string
	subsystem string
	enabled   bool
	registry  *prometheus.Registry

	// Ingest and cleaning
	rowsIngested      prometheus.Counter
	rowsDropped       *prometheus.CounterVec
	rowsDeduplicated  prometheus.Counter

	// Pipeline outcomes
	customersFeatured prometheus.Gauge
	flagsEmitted      *prometheus.CounterVec
	runsCompleted     prometheus.Counter
	runsFailed        prometheus.Counter

	// Stage timings
	stageDuration *prometheus.HistogramVec

	// Worker and queue health
	queueCapacity prometheus.Gauge
	queueSize     prometheus.Gauge
	workersActive prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "finsift",
		subsystem: "pipeline",
		enabled:   true,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.register()
	return m
}

func (m *Manager) register() {
	factory := promauto.With(m.registry)

	m.rowsIngested = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rows_ingested_total",
		Help: "Raw transaction rows read from the input source.",
	})
	m.rowsDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rows_dropped_total",
		Help: "Rows removed during cleaning, by cause.",
	}, []string{"cause"})
	m.rowsDeduplicated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rows_deduplicated_total",
		Help: "Exact-duplicate rows removed during cleaning.",
	})
	m.customersFeatured = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "customers_featured",
		Help: "Customer feature rows built in the latest run.",
	})
	m.flagsEmitted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "flags_emitted_total",
		Help: "Flag records emitted, by reason code.",
	}, []string{"reason"})
	m.runsCompleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_completed_total",
		Help: "Pipeline runs that completed all stages.",
	})
	m.runsFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_failed_total",
		Help: "Pipeline runs aborted by a stage error.",
	})
	m.stageDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "stage_duration_seconds",
		Help:    "Wall-clock duration of each pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"stage"})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Capacity of the aggregation work queue.",
	})
	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Tasks currently queued for aggregation.",
	})
	m.workersActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "workers_active",
		Help: "Aggregation workers currently running.",
	})
}

// Handler returns the HTTP handler for the global registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level helpers against the global manager.

// RecordRowsIngested adds to the ingested row counter.
func RecordRowsIngested(n int) {
	if globalManager.enabled {
		globalManager.rowsIngested.Add(float64(n))
	}
}

// RecordRowsDropped adds dropped rows under a cause label.
func RecordRowsDropped(cause string, n int) {
	if globalManager.enabled && n > 0 {
		globalManager.rowsDropped.WithLabelValues(cause).Add(float64(n))
	}
}

// RecordRowsDeduplicated adds to the duplicate-row counter.
func RecordRowsDeduplicated(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.rowsDeduplicated.Add(float64(n))
	}
}

// UpdateCustomersFeatured sets the featured-customer gauge.
func UpdateCustomersFeatured(n int) {
	if globalManager.enabled {
		globalManager.customersFeatured.Set(float64(n))
	}
}

// RecordFlagEmitted increments the flag counter for a reason code.
func RecordFlagEmitted(reason string) {
	if globalManager.enabled {
		globalManager.flagsEmitted.WithLabelValues(reason).Inc()
	}
}

// RecordRunCompleted increments the completed-run counter.
func RecordRunCompleted() {
	if globalManager.enabled {
		globalManager.runsCompleted.Inc()
	}
}

// RecordRunFailed increments the failed-run counter.
func RecordRunFailed() {
	if globalManager.enabled {
		globalManager.runsFailed.Inc()
	}
}

// RecordStageDuration observes a stage's wall-clock duration.
func RecordStageDuration(stage string, d time.Duration) {
	if globalManager.enabled {
		globalManager.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

// UpdateQueueSize sets the queued-task gauge.
func UpdateQueueSize(n int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(n))
	}
}

// UpdateWorkerActiveCount sets the active-worker gauge.
func UpdateWorkerActiveCount(n int) {
	if globalManager.enabled {
		globalManager.workersActive.Set(float64(n))
	}
}
