// Package metrics provides Prometheus metrics for the engagement scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Scoring
	aggregations       prometheus.Counter
	aggregationLatency prometheus.Histogram
	scoresheets        prometheus.Counter
	dataQuality        *prometheus.CounterVec
	maxScoreCache      *prometheus.CounterVec

	// Catalog
	catalogMetrics       prometheus.Gauge
	catalogMaxScore      prometheus.Gauge
	catalogMisconfigured prometheus.Gauge

	// Classification
	grades *prometheus.CounterVec
	trends *prometheus.CounterVec

	// Dashboard
	dashboardRefreshes      *prometheus.CounterVec
	dashboardRefreshLatency prometheus.Histogram
	dashboardLastRefresh    prometheus.Gauge
	dashboardClients        prometheus.Gauge

	// Store
	storeLatency     *prometheus.HistogramVec
	storeAppended    prometheus.Counter
	duplicateBatches prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "engage",
		subsystem:        "scoring",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.aggregations = auto.NewCounter(m.counterOpts("aggregations_total",
		"Total number of score record snapshots aggregated"))
	m.aggregationLatency = auto.NewHistogram(m.histogramOpts("aggregation_latency_milliseconds",
		"Aggregation latency in milliseconds", m.histogramBuckets))
	m.scoresheets = auto.NewCounter(m.counterOpts("scoresheets_resolved_total",
		"Total number of scoresheets resolved"))
	m.dataQuality = auto.NewCounterVec(m.counterOpts("records_flagged_total",
		"Score records flagged while resolving, by kind (unknown_metric, clamped, rejected, superseded)"),
		[]string{"kind"})
	m.maxScoreCache = auto.NewCounterVec(m.counterOpts("max_score_cache_total",
		"Maximum possible score cache lookups by result"),
		[]string{"result"})

	m.catalogMetrics = auto.NewGauge(m.gaugeOpts("catalog_metrics",
		"Number of metrics in the current catalog"))
	m.catalogMaxScore = auto.NewGauge(m.gaugeOpts("catalog_max_score",
		"Maximum possible score of the current catalog"))
	m.catalogMisconfigured = auto.NewGauge(m.gaugeOpts("catalog_misconfigured_metrics",
		"Metrics contributing nothing to the maximum because their maximum is missing"))

	m.grades = auto.NewCounterVec(m.counterOpts("grades_total",
		"Performance classifications by band"),
		[]string{"band"})
	m.trends = auto.NewCounterVec(m.counterOpts("trends_total",
		"Trend classifications by direction"),
		[]string{"direction"})

	m.dashboardRefreshes = auto.NewCounterVec(m.counterOpts("dashboard_refresh_total",
		"Dashboard refreshes by outcome"),
		[]string{"outcome"})
	m.dashboardRefreshLatency = auto.NewHistogram(m.histogramOpts("dashboard_refresh_duration_milliseconds",
		"Dashboard refresh duration in milliseconds", m.histogramBuckets))
	m.dashboardLastRefresh = auto.NewGauge(m.gaugeOpts("dashboard_last_refresh_unix",
		"Unix timestamp of the last successful dashboard refresh"))
	m.dashboardClients = auto.NewGauge(m.gaugeOpts("dashboard_clients",
		"Clients covered by the last dashboard refresh"))

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Store operation latency in milliseconds", m.histogramBuckets),
		[]string{"operation"})
	m.storeAppended = auto.NewCounter(m.counterOpts("store_records_appended_total",
		"Total number of score records appended"))
	m.duplicateBatches = auto.NewCounter(m.counterOpts("duplicate_batches_total",
		"Total number of score batches skipped by idempotency key"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component"),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Data quality kinds.
const (
	KindUnknownMetric = "unknown_metric"
	KindClamped       = "clamped"
	KindRejected      = "rejected"
	KindSuperseded    = "superseded"
)

// RecordAggregation records one aggregation of a record snapshot.
func RecordAggregation(sheets int, latencyMs float64) {
	globalManager.aggregations.Inc()
	globalManager.scoresheets.Add(float64(sheets))
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordFlagged adds n flagged records of the given kind. Zero is a no-op.
func RecordFlagged(kind string, n int) {
	if n <= 0 {
		return
	}
	globalManager.dataQuality.WithLabelValues(kind).Add(float64(n))
}

// RecordMaxScoreCache records a cache hit or miss.
func RecordMaxScoreCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.maxScoreCache.WithLabelValues(result).Inc()
}

// UpdateCatalog sets the catalog gauges.
func UpdateCatalog(metrics int, maxScore float64, misconfigured int) {
	globalManager.catalogMetrics.Set(float64(metrics))
	globalManager.catalogMaxScore.Set(maxScore)
	globalManager.catalogMisconfigured.Set(float64(misconfigured))
}

// RecordGrade counts a performance classification.
func RecordGrade(band string) {
	globalManager.grades.WithLabelValues(band).Inc()
}

// RecordTrend counts a trend classification.
func RecordTrend(direction string) {
	globalManager.trends.WithLabelValues(direction).Inc()
}

// RecordDashboardRefresh records a refresh outcome and its duration. The
// last-refresh gauge only moves on success.
func RecordDashboardRefresh(ok bool, clients int, durationMs float64, unix int64) {
	outcome := "error"
	if ok {
		outcome = "ok"
		globalManager.dashboardLastRefresh.Set(float64(unix))
		globalManager.dashboardClients.Set(float64(clients))
	}
	globalManager.dashboardRefreshes.WithLabelValues(outcome).Inc()
	globalManager.dashboardRefreshLatency.Observe(durationMs)
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreAppend counts appended score records.
func RecordStoreAppend(n int) {
	globalManager.storeAppended.Add(float64(n))
}

// RecordDuplicateBatch counts a replayed score batch.
func RecordDuplicateBatch() {
	globalManager.duplicateBatches.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
