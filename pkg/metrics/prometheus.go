// Package metrics provides Prometheus metrics for the courtside signal engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the courtside service.
type Manager struct {
	registry prometheus.Registerer

	// Ingest metrics
	updatesReceived  *prometheus.CounterVec
	updatesDebounced prometheus.Counter
	updatesRejected  *prometheus.CounterVec
	updatesProcessed prometheus.Counter

	// Live-state metrics
	gamesTracked prometheus.Gauge
	gamesEvicted prometheus.Counter

	// Engine metrics
	evaluationLatency  prometheus.Histogram
	triggersFired      *prometheus.CounterVec
	signalTransitions  *prometheus.CounterVec
	signalsActive      prometheus.Gauge
	strategiesLoaded   prometheus.Gauge
	strategyLoadErrors prometheus.Counter

	// Sink metrics
	sinkDeliveries *prometheus.CounterVec
	sinkFailures   *prometheus.CounterVec
	sinkLatency    *prometheus.HistogramVec

	// Queue and worker metrics
	queueSize               *prometheus.GaugeVec
	queueEnqueueErrors      *prometheus.CounterVec
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Stream metrics
	streamClients prometheus.Gauge

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Every metric is named courtside_engine_<name>.
const (
	namespace = "courtside"
	subsystem = "engine"
)

// Latency histograms are in milliseconds.
var latencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only bucket layout

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{registry: prometheus.DefaultRegisterer}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	counterVec := func(name, help string, lbls ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		}, lbls)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
			Buckets: latencyBuckets,
		})
	}

	m.updatesReceived = counterVec("updates_received_total", "Game updates received by source", "source")
	m.updatesDebounced = counter("updates_debounced_total", "Game updates rejected by the debounce guard")
	m.updatesRejected = counterVec("updates_rejected_total", "Game updates rejected before evaluation by reason", "reason")
	m.updatesProcessed = counter("updates_processed_total", "Game updates merged and evaluated")

	m.gamesTracked = gauge("games_tracked", "Games currently held in the live-state cache")
	m.gamesEvicted = counter("games_evicted_total", "Live games evicted for staleness")

	m.evaluationLatency = histogram("evaluation_latency_milliseconds", "Latency of one evaluation cycle for a game update")
	m.triggersFired = counterVec("triggers_fired_total", "Trigger fires by strategy mode and trigger role", "mode", "role")
	m.signalTransitions = counterVec("signal_transitions_total", "Signal lifecycle transitions by target stage", "stage")
	m.signalsActive = gauge("signals_active", "Signals currently tracked by the lifecycle engine")
	m.strategiesLoaded = gauge("strategies_loaded", "Strategies held by the registry")
	m.strategyLoadErrors = counter("strategy_load_errors_total", "Failed strategy refreshes")

	m.sinkDeliveries = counterVec("sink_deliveries_total", "Events delivered to a sink", "sink")
	m.sinkFailures = counterVec("sink_failures_total", "Events a sink failed to accept", "sink")
	m.sinkLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: "sink_latency_milliseconds",
		Help: "Sink delivery latency in milliseconds", Buckets: latencyBuckets,
	}, []string{"sink"})

	m.queueSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: "queue_size",
		Help: "Pending updates per shard queue",
	}, []string{"shard"})
	m.queueEnqueueErrors = counterVec("queue_enqueue_errors_total", "Failed enqueue attempts by reason", "reason")
	m.workerCount = gauge("worker_count", "Shard workers running")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Worker processing latency per update")
	m.workerErrors = counter("worker_errors_total", "Worker processing errors")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", Buckets: latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.streamClients = gauge("stream_clients", "Connected WebSocket stream clients")

	m.systemMemoryUsage = gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
}

// RecordUpdateReceived counts an inbound update from source ("http", "amqp").
func RecordUpdateReceived(source string) {
	globalManager.updatesReceived.WithLabelValues(source).Inc()
}

// RecordUpdateDebounced counts an update rejected by the debounce guard.
func RecordUpdateDebounced() {
	globalManager.updatesDebounced.Inc()
}

// RecordUpdateRejected counts an update rejected for a reason other than debounce.
func RecordUpdateRejected(reason string) {
	globalManager.updatesRejected.WithLabelValues(reason).Inc()
}

// RecordUpdateProcessed counts an update that went through evaluation.
func RecordUpdateProcessed() {
	globalManager.updatesProcessed.Inc()
}

// UpdateGamesTracked sets the number of cached games.
func UpdateGamesTracked(count int) {
	globalManager.gamesTracked.Set(float64(count))
}

// RecordGamesEvicted adds n evicted games.
func RecordGamesEvicted(n int) {
	globalManager.gamesEvicted.Add(float64(n))
}

// RecordEvaluationLatency records the latency of one evaluation cycle.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordTriggerFired counts a trigger fire.
func RecordTriggerFired(mode, role string) {
	globalManager.triggersFired.WithLabelValues(mode, role).Inc()
}

// RecordSignalTransition counts a lifecycle transition into stage.
func RecordSignalTransition(stage string) {
	globalManager.signalTransitions.WithLabelValues(stage).Inc()
}

// UpdateSignalsActive sets the number of tracked signals.
func UpdateSignalsActive(count int) {
	globalManager.signalsActive.Set(float64(count))
}

// UpdateStrategiesLoaded sets the number of strategies in the registry.
func UpdateStrategiesLoaded(count int) {
	globalManager.strategiesLoaded.Set(float64(count))
}

// RecordStrategyLoadError counts a failed strategy refresh.
func RecordStrategyLoadError() {
	globalManager.strategyLoadErrors.Inc()
}

// RecordSinkDelivery records a successful sink delivery and its latency.
func RecordSinkDelivery(sink string, latencyMs float64) {
	globalManager.sinkDeliveries.WithLabelValues(sink).Inc()
	globalManager.sinkLatency.WithLabelValues(sink).Observe(latencyMs)
}

// RecordSinkFailure records a failed sink delivery.
func RecordSinkFailure(sink string) {
	globalManager.sinkFailures.WithLabelValues(sink).Inc()
}

// UpdateQueueSize sets the pending count of one shard queue.
func UpdateQueueSize(shard string, size int) {
	globalManager.queueSize.WithLabelValues(shard).Set(float64(size))
}

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker latency per update.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker processing error.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateStreamClients sets the number of connected stream clients.
func UpdateStreamClients(count int) {
	globalManager.streamClients.Set(float64(count))
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
