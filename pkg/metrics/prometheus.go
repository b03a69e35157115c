// Package metrics provides Prometheus metrics for the swatrank service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the swatrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scoring engine
	evaluations        *prometheus.CounterVec
	evaluationLatency  *prometheus.HistogramVec
	participantsScored *prometheus.GaugeVec
	stageRanked        *prometheus.GaugeVec

	// Writes
	measurementsWritten *prometheus.CounterVec
	participantChanges  *prometheus.CounterVec

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// Standings publishing
	publishTotal   *prometheus.CounterVec
	publishErrors  *prometheus.CounterVec
	publishLatency prometheus.Histogram

	// Publish queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueCoalesced     prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "swatrank",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauges fed by polling should be updated.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// RefreshInterval reports the sampling interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.evaluations = auto.NewCounterVec(
		m.counterOpts("evaluations_total", "Total number of full standings evaluations"),
		[]string{"mode"},
	)
	m.evaluationLatency = auto.NewHistogramVec(
		m.histogramOpts("evaluation_latency_milliseconds", "Latency of a full standings evaluation in milliseconds", nil),
		[]string{"mode"},
	)
	m.participantsScored = auto.NewGaugeVec(
		m.gaugeOpts("participants", "Participants included in the last evaluation"),
		[]string{"mode"},
	)
	m.stageRanked = auto.NewGaugeVec(
		m.gaugeOpts("stage_ranked_participants", "Participants with a measurement in the last evaluation, per stage"),
		[]string{"mode", "stage"},
	)

	m.measurementsWritten = auto.NewCounterVec(
		m.counterOpts("measurements_written_total", "Total number of measurement upserts and clears"),
		[]string{"mode"},
	)
	m.participantChanges = auto.NewCounterVec(
		m.counterOpts("participant_changes_total", "Total number of participant create/rename/delete operations"),
		[]string{"mode", "op"},
	)

	m.repositoryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_latency_milliseconds", "Repository operation latency in milliseconds", nil),
		[]string{"store", "op"},
	)

	m.publishTotal = auto.NewCounterVec(
		m.counterOpts("publish_total", "Total number of standings snapshots published"),
		[]string{"mode"},
	)
	m.publishErrors = auto.NewCounterVec(
		m.counterOpts("publish_errors_total", "Total number of failed standings publications"),
		[]string{"mode"},
	)
	m.publishLatency = auto.NewHistogram(
		m.histogramOpts("publish_latency_milliseconds", "Standings publication latency in milliseconds", nil),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("publish_queue_size", "Modes waiting for a standings publication"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("publish_queue_capacity", "Capacity of the publish queue"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("publish_queue_enqueue_total", "Modes accepted by the publish queue"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("publish_queue_dequeue_total", "Modes handed to publish workers"))
	m.queueCoalesced = auto.NewCounter(m.counterOpts("publish_queue_coalesced_total", "Publish requests merged into an already pending one"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("publish_queue_enqueue_errors_total", "Publish requests rejected by the queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("publish_workers", "Number of running publish workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time a worker spends on one publish job", nil),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Failed publish jobs"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordEvaluation records one standings evaluation for a mode.
func RecordEvaluation(mode string, latencyMs float64, participants int) {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluations.WithLabelValues(mode).Inc()
	globalManager.evaluationLatency.WithLabelValues(mode).Observe(latencyMs)
	globalManager.participantsScored.WithLabelValues(mode).Set(float64(participants))
}

// UpdateStageRanked sets how many participants were ranked in a stage.
func UpdateStageRanked(mode, stage string, count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.stageRanked.WithLabelValues(mode, stage).Set(float64(count))
}

// RecordMeasurementWritten counts a measurement upsert or clear.
func RecordMeasurementWritten(mode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.measurementsWritten.WithLabelValues(mode).Inc()
}

// RecordParticipantChange counts a participant create/rename/delete.
func RecordParticipantChange(mode, op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.participantChanges.WithLabelValues(mode, op).Inc()
}

// RecordRepositoryLatency records the latency of a store operation.
func RecordRepositoryLatency(store, op string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryLatency.WithLabelValues(store, op).Observe(latencyMs)
}

// RecordPublish records a successful standings publication.
func RecordPublish(mode string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.publishTotal.WithLabelValues(mode).Inc()
	globalManager.publishLatency.Observe(latencyMs)
}

// RecordPublishError records a failed standings publication.
func RecordPublishError(mode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.publishErrors.WithLabelValues(mode).Inc()
}

// UpdateQueueSize sets the current publish queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the publish queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeue.Inc()
}

// RecordQueueCoalesced increments the coalesced request counter.
func RecordQueueCoalesced() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCoalesced.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of publish workers.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if !globalManager.enabled {
		return
	}
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
