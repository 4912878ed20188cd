// Package metrics provides Prometheus metrics for the speedhud engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Default buckets for recorded peak speeds, in blocks per second.
var defaultSpeedBuckets = []float64{1, 2, 4, 6, 8, 10, 15, 20, 30, 50, 100} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the speedhud service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	speedBuckets     []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Sampler
	ticks           prometheus.Counter
	tickDuration    prometheus.Histogram
	trackedEntities prometheus.Gauge

	// HUD
	hudViewers          prometheus.Gauge
	hudUpdates          prometheus.Counter
	hudDeliveryFailures prometheus.Counter

	// Delivery queue
	deliveryQueueSize     prometheus.Gauge
	deliveriesEnqueued    prometheus.Counter
	deliveriesDropped     *prometheus.CounterVec
	deliveryLatency       prometheus.Histogram
	deliveryWorkersActive prometheus.Gauge

	// Recording sessions
	recordingsStarted   prometheus.Counter
	recordingsRejected  prometheus.Counter
	recordingsCompleted prometheus.Counter
	recordingsActive    prometheus.Gauge
	recordedPeak        prometheus.Histogram

	// Leaderboard
	leaderboardEntries  prometheus.Gauge
	leaderboardQueries  prometheus.Counter
	persistFailures     prometheus.Counter
	persistLatency      prometheus.Histogram
	unitFallbacks       *prometheus.CounterVec
	configReloads       *prometheus.CounterVec
	commands            *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "speedhud",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		speedBuckets:     defaultSpeedBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.ticks = m.counter("ticks_total", "Total number of sampler ticks executed")
	m.tickDuration = m.histogram("tick_duration_milliseconds", "Time spent in one sampler tick", m.histogramBuckets)
	m.trackedEntities = m.gauge("tracked_entities", "Entities sampled on the last tick")

	m.hudViewers = m.gauge("hud_viewers", "Viewers with the HUD enabled")
	m.hudUpdates = m.counter("hud_updates_total", "HUD action bar updates emitted")
	m.hudDeliveryFailures = m.counter("hud_delivery_failures_total", "Messages dropped because the viewer was unreachable")

	m.deliveryQueueSize = m.gauge("delivery_queue_size", "Deliveries waiting in the outbound queues")
	m.deliveriesEnqueued = m.counter("deliveries_enqueued_total", "Deliveries accepted by the outbound queues")
	m.deliveriesDropped = m.counterVec("deliveries_dropped_total", "Deliveries dropped before reaching a worker", "reason")
	m.deliveryLatency = m.histogram("delivery_latency_milliseconds", "Time a worker spent delivering one message", m.histogramBuckets)
	m.deliveryWorkersActive = m.gauge("delivery_workers", "Delivery workers running")

	m.recordingsStarted = m.counter("recordings_started_total", "Recording sessions started")
	m.recordingsRejected = m.counter("recordings_rejected_total", "Recording starts rejected because a session was already running")
	m.recordingsCompleted = m.counter("recordings_completed_total", "Recording sessions completed")
	m.recordingsActive = m.gauge("recordings_active", "Recording sessions currently running")
	m.recordedPeak = m.histogram("recorded_peak_speed", "Peak smoothed speed captured per session, in base units", m.speedBuckets)

	m.leaderboardEntries = m.gauge("leaderboard_entries", "Entries in the leaderboard")
	m.leaderboardQueries = m.counter("leaderboard_queries_total", "Ranked leaderboard views served")
	m.persistFailures = m.counter("leaderboard_persist_failures_total", "Leaderboard writes that failed to reach durable storage")
	m.persistLatency = m.histogram("leaderboard_persist_latency_milliseconds", "Latency of leaderboard persistence", m.histogramBuckets)

	m.unitFallbacks = m.counterVec("unit_fallbacks_total", "Unit lookups answered by a fallback tier", "reason")
	m.configReloads = m.counterVec("config_reloads_total", "Configuration reloads by result", "result")
	m.commands = m.counterVec("commands_total", "Commands dispatched by name and result", "command", "result")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error type", "endpoint", "method", "error_type", "severity")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time", m.histogramBuckets)
}

// Sampler metrics.

// RecordTick records one sampler tick and how long it took.
func RecordTick(durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.ticks.Inc()
	globalManager.tickDuration.Observe(durationMs)
}

// UpdateTrackedEntities sets the number of entities sampled on the last tick.
func UpdateTrackedEntities(count int) {
	globalManager.trackedEntities.Set(float64(count))
}

// HUD metrics.

// UpdateHUDViewers sets the number of HUD-enabled viewers.
func UpdateHUDViewers(count int) {
	globalManager.hudViewers.Set(float64(count))
}

// RecordHUDUpdates adds n emitted HUD updates.
func RecordHUDUpdates(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.hudUpdates.Add(float64(n))
}

// RecordDeliveryFailure counts a message that could not reach its viewer.
func RecordDeliveryFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.hudDeliveryFailures.Inc()
}

// Delivery queue metrics.

// UpdateDeliveryQueueSize sets the number of queued deliveries.
func UpdateDeliveryQueueSize(size int) {
	globalManager.deliveryQueueSize.Set(float64(size))
}

// RecordDeliveryEnqueued counts an accepted delivery.
func RecordDeliveryEnqueued() {
	if !globalManager.enabled {
		return
	}
	globalManager.deliveriesEnqueued.Inc()
}

// RecordDeliveryDropped counts a delivery rejected by a queue.
// reason is one of "full", "closed", "context_cancelled".
func RecordDeliveryDropped(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.deliveriesDropped.WithLabelValues(reason).Inc()
}

// RecordDeliveryLatency records how long one delivery took.
func RecordDeliveryLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.deliveryLatency.Observe(latencyMs)
}

// UpdateDeliveryWorkers sets the number of running delivery workers.
func UpdateDeliveryWorkers(count int) {
	globalManager.deliveryWorkersActive.Set(float64(count))
}

// Recording metrics.

// RecordRecordingStarted counts a started session.
func RecordRecordingStarted() {
	if !globalManager.enabled {
		return
	}
	globalManager.recordingsStarted.Inc()
	globalManager.recordingsActive.Inc()
}

// RecordRecordingRejected counts a duplicate start request.
func RecordRecordingRejected() {
	if !globalManager.enabled {
		return
	}
	globalManager.recordingsRejected.Inc()
}

// RecordRecordingCompleted counts a finished session and its peak speed.
func RecordRecordingCompleted(peak float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.recordingsCompleted.Inc()
	globalManager.recordingsActive.Dec()
	globalManager.recordedPeak.Observe(peak)
}

// RecordRecordingDiscarded counts a session dropped without a result.
func RecordRecordingDiscarded() {
	if !globalManager.enabled {
		return
	}
	globalManager.recordingsActive.Dec()
}

// Leaderboard metrics.

// UpdateLeaderboardEntries sets the leaderboard size.
func UpdateLeaderboardEntries(count int) {
	globalManager.leaderboardEntries.Set(float64(count))
}

// RecordLeaderboardQuery counts a ranked view served.
func RecordLeaderboardQuery() {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardQueries.Inc()
}

// RecordPersistFailure counts a failed durable write.
func RecordPersistFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.persistFailures.Inc()
}

// RecordPersistLatency records the duration of a durable write.
func RecordPersistLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.persistLatency.Observe(latencyMs)
}

// Configuration metrics.

// RecordUnitFallback counts a unit lookup resolved by a fallback tier.
// reason is one of "unknown_unit", "builtin_unit", "degraded_config".
func RecordUnitFallback(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.unitFallbacks.WithLabelValues(reason).Inc()
}

// RecordConfigReload counts a configuration reload by result ("ok" or "error").
func RecordConfigReload(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.configReloads.WithLabelValues(result).Inc()
}

// RecordCommand counts a dispatched command.
func RecordCommand(command, result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.commands.WithLabelValues(command, result).Inc()
}

// HTTP metrics.

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response by its classified type and severity.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
