// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
package monitoring

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the service
const Namespace = "recipediff"

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpActiveRequests  prometheus.Gauge

	// Diff metrics
	comparisonsTotal   *prometheus.CounterVec
	comparisonDuration *prometheus.HistogramVec
	additions          prometheus.Histogram
	cacheRequests      *prometheus.CounterVec

	// Retention metrics
	revisionsPruned prometheus.Counter
}

var _ outbound.DiffMetrics = (*MetricsCollector)(nil)

// NewMetricsCollector creates a new metrics collector on its own
// registry, with the Go runtime and process collectors included
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "http_active_requests",
				Help:      "Number of active HTTP requests",
			},
		),

		comparisonsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "diff_comparisons_total",
				Help:      "Total number of recipe comparisons computed",
			},
			[]string{"alignment"},
		),
		comparisonDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "diff_comparison_duration_seconds",
				Help:      "Time spent computing a recipe diff",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"alignment"},
		),
		additions: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "diff_additions",
				Help:      "Number of added fragments per comparison",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "diff_cache_requests_total",
				Help:      "Diff cache lookups by result",
			},
			[]string{"result"},
		),

		revisionsPruned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "revisions_pruned_total",
				Help:      "Archived revisions deleted by retention",
			},
		),
	}
}

// Registry returns the registry metrics are exported from
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDB exports connection pool statistics for db
func (m *MetricsCollector) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RequestStarted tracks an in-flight request
func (m *MetricsCollector) RequestStarted() {
	m.httpActiveRequests.Inc()
}

// RequestFinished marks an in-flight request as done
func (m *MetricsCollector) RequestFinished() {
	m.httpActiveRequests.Dec()
}

// ObserveComparison records one computed diff
func (m *MetricsCollector) ObserveComparison(alignment string, duration time.Duration, additions int) {
	m.comparisonsTotal.WithLabelValues(alignment).Inc()
	m.comparisonDuration.WithLabelValues(alignment).Observe(duration.Seconds())
	m.additions.Observe(float64(additions))
}

// CacheResult records a diff cache lookup
func (m *MetricsCollector) CacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// RevisionsPruned records deleted revisions
func (m *MetricsCollector) RevisionsPruned(n int64) {
	m.revisionsPruned.Add(float64(n))
}
