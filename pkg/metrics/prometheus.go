// Package metrics provides Prometheus metrics for the training service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	simulatorBuckets []float64
	storeBuckets     []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Progress
	sessionsSaved       *prometheus.CounterVec
	sessionSaveErrors   prometheus.Counter
	idempotentReplays   prometheus.Counter
	badgesUnlocked      *prometheus.CounterVec
	mentorInterventions prometheus.Counter
	progressResets      *prometheus.CounterVec

	// Training
	trainingTurns  *prometheus.CounterVec
	activeTrainers prometheus.Gauge

	// Simulator backend
	simulatorLatency *prometheus.HistogramVec
	simulatorErrors  *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide collectors

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // excludes default Go collectors

func init() { //nolint:gochecknoinits // global collectors must exist before any Record call
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates and registers a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cyberguardian",
		subsystem:        "training",
		simulatorBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		storeBuckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sessionsSaved = auto.NewCounterVec(m.counterOpts(
		"sessions_saved_total", "Training sessions folded into progress, by completion flag"),
		[]string{"completed"})
	m.sessionSaveErrors = auto.NewCounter(m.counterOpts(
		"session_save_errors_total", "Session saves that failed to persist"))
	m.idempotentReplays = auto.NewCounter(m.counterOpts(
		"session_save_replays_total", "Session saves acknowledged from a repeated idempotency key"))
	m.badgesUnlocked = auto.NewCounterVec(m.counterOpts(
		"badges_unlocked_total", "Badges earned, by badge id"),
		[]string{"badge"})
	m.mentorInterventions = auto.NewCounter(m.counterOpts(
		"mentor_interventions_total", "Turns the backend classified as risky"))
	m.progressResets = auto.NewCounterVec(m.counterOpts(
		"progress_resets_total", "Progress blobs replaced by defaults, by reason"),
		[]string{"reason"})

	m.trainingTurns = auto.NewCounterVec(m.counterOpts(
		"turns_total", "Training state machine operations, by operation and outcome"),
		[]string{"operation", "outcome"})
	m.activeTrainers = auto.NewGauge(m.gaugeOpts(
		"active_trainers", "Training state machines held in memory"))

	m.simulatorLatency = auto.NewHistogramVec(m.histogramOpts(
		"simulator_latency_milliseconds", "Simulation backend call latency", m.simulatorBuckets),
		[]string{"operation"})
	m.simulatorErrors = auto.NewCounterVec(m.counterOpts(
		"simulator_errors_total", "Simulation backend failures, by operation and kind"),
		[]string{"operation", "kind"})

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts(
		"store_latency_milliseconds", "Progress store operation latency", m.storeBuckets),
		[]string{"backend", "operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "HTTP requests, by endpoint method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_seconds", "HTTP request duration in seconds", prometheus.DefBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts(
		"errors_by_component_total", "Errors, by component and type"),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordSessionSaved counts a saved session.
func RecordSessionSaved(completed bool) {
	label := "false"
	if completed {
		label = "true"
	}
	globalManager.sessionsSaved.WithLabelValues(label).Inc()
}

// RecordSessionSaveError counts a failed save.
func RecordSessionSaveError() {
	globalManager.sessionSaveErrors.Inc()
}

// RecordIdempotentReplay counts a save skipped by its idempotency key.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// RecordBadgeUnlocked counts a newly earned badge.
func RecordBadgeUnlocked(badgeID string) {
	globalManager.badgesUnlocked.WithLabelValues(badgeID).Inc()
}

// RecordMentorIntervention counts a risky turn.
func RecordMentorIntervention() {
	globalManager.mentorInterventions.Inc()
}

// RecordProgressReset counts a progress blob replaced by defaults.
func RecordProgressReset(reason string) {
	globalManager.progressResets.WithLabelValues(reason).Inc()
}

// RecordTrainingTurn counts a state machine operation outcome.
func RecordTrainingTurn(operation, outcome string) {
	globalManager.trainingTurns.WithLabelValues(operation, outcome).Inc()
}

// UpdateActiveTrainers sets the number of in-memory trainers.
func UpdateActiveTrainers(count int) {
	globalManager.activeTrainers.Set(float64(count))
}

// RecordSimulatorLatency records a backend call latency in milliseconds.
func RecordSimulatorLatency(operation string, latencyMs float64) {
	globalManager.simulatorLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordSimulatorError counts a backend failure.
func RecordSimulatorError(operation, kind string) {
	globalManager.simulatorErrors.WithLabelValues(operation, kind).Inc()
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(backend, operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry that holds the global collectors.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
