// Package metrics provides Prometheus metrics for the watchtower agent and collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by delivery and probe metrics.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
	OutcomePanic    = "panic"
	OutcomeNull     = "null"
)

// Manager manages all Prometheus metrics for watchtower.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Collection
	samplesAccepted  *prometheus.CounterVec
	samplesThrottled prometheus.Counter
	samplesDropped   prometheus.Counter
	samplesEvicted   prometheus.Counter
	bufferSize       prometheus.Gauge
	bufferCapacity   prometheus.Gauge

	// Delivery
	batchesFlushed  *prometheus.CounterVec
	batchSize       prometheus.Histogram
	deliveries      *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec
	beaconQueueSize prometheus.Gauge

	// Fingerprinting
	probeResults       *prometheus.CounterVec
	probeLatency       *prometheus.HistogramVec
	aggregationLatency prometheus.Histogram

	// Collector (ingest side)
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	payloadsIngested    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "watchtower",
		subsystem:        "agent",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	if !m.enabled {
		// Metrics still exist so callers never nil-check; they just aren't exported.
		auto = promauto.With(nil)
	}

	m.samplesAccepted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "samples_accepted_total",
		Help:        "Movement samples recorded into the trail buffer, by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.samplesThrottled = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "samples_throttled_total",
		Help:        "Movement notifications rejected by the sampling throttle",
		ConstLabels: m.constLabels,
	})

	m.samplesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "samples_dropped_total",
		Help:        "Touch notifications dropped for having no active touch point",
		ConstLabels: m.constLabels,
	})

	m.samplesEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "samples_evicted_total",
		Help:        "Oldest samples evicted because the trail buffer was full",
		ConstLabels: m.constLabels,
	})

	m.bufferSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "buffer_size",
		Help:        "Samples currently held in the trail buffer",
		ConstLabels: m.constLabels,
	})

	m.bufferCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "buffer_capacity",
		Help:        "Maximum samples the trail buffer holds",
		ConstLabels: m.constLabels,
	})

	m.batchesFlushed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batches_flushed_total",
		Help:        "Trail batches drained from the buffer, by trigger (tick, teardown)",
		ConstLabels: m.constLabels,
	}, []string{"trigger"})

	m.batchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_samples",
		Help:        "Number of samples per trail batch",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})

	m.deliveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "deliveries_total",
		Help:        "Outbound payload deliveries by path, mode and outcome",
		ConstLabels: m.constLabels,
	}, []string{"path", "mode", "outcome"})

	m.deliveryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "delivery_latency_milliseconds",
		Help:        "Outbound request latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"path", "mode"})

	m.beaconQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "beacon_queue_size",
		Help:        "Guaranteed-enqueue payloads waiting for delivery",
		ConstLabels: m.constLabels,
	})

	m.probeResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "probe_results_total",
		Help:        "Fingerprint probe results by probe and outcome",
		ConstLabels: m.constLabels,
	}, []string{"probe", "outcome"})

	m.probeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "probe_latency_milliseconds",
		Help:        "Fingerprint probe latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"probe"})

	m.aggregationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "aggregation_latency_milliseconds",
		Help:        "Time to build the fingerprint profile in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "collector",
		Name:        "http_requests_total",
		Help:        "Total number of collector HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "collector",
		Name:        "http_request_duration_milliseconds",
		Help:        "Collector HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.payloadsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "collector",
		Name:        "payloads_ingested_total",
		Help:        "Payloads stored by the collector, by kind (fingerprint, trail)",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Total number of errors by component",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})
}

// Collection.

// RecordSampleAccepted increments the accepted samples counter for kind.
func RecordSampleAccepted(kind string) {
	globalManager.samplesAccepted.WithLabelValues(kind).Inc()
}

// RecordSampleThrottled increments the throttled notifications counter.
func RecordSampleThrottled() {
	globalManager.samplesThrottled.Inc()
}

// RecordSampleDropped increments the dropped touch notifications counter.
func RecordSampleDropped() {
	globalManager.samplesDropped.Inc()
}

// RecordSampleEvicted increments the evicted samples counter.
func RecordSampleEvicted() {
	globalManager.samplesEvicted.Inc()
}

// UpdateBufferSize sets the current buffer size.
func UpdateBufferSize(size int) {
	globalManager.bufferSize.Set(float64(size))
}

// UpdateBufferCapacity sets the buffer capacity.
func UpdateBufferCapacity(capacity int) {
	globalManager.bufferCapacity.Set(float64(capacity))
}

// Delivery.

// RecordBatchFlushed records a drained batch of n samples.
func RecordBatchFlushed(trigger string, n int) {
	globalManager.batchesFlushed.WithLabelValues(trigger).Inc()
	globalManager.batchSize.Observe(float64(n))
}

// RecordDelivery records the outcome of one outbound send.
func RecordDelivery(path, mode, outcome string) {
	globalManager.deliveries.WithLabelValues(path, mode, outcome).Inc()
}

// RecordDeliveryLatency records outbound request latency.
func RecordDeliveryLatency(path, mode string, latencyMs float64) {
	globalManager.deliveryLatency.WithLabelValues(path, mode).Observe(latencyMs)
}

// UpdateBeaconQueueSize sets the beacon queue depth.
func UpdateBeaconQueueSize(size int) {
	globalManager.beaconQueueSize.Set(float64(size))
}

// Fingerprinting.

// RecordProbeResult records the outcome of a single probe.
func RecordProbeResult(probe, outcome string) {
	globalManager.probeResults.WithLabelValues(probe, outcome).Inc()
}

// RecordProbeLatency records probe latency.
func RecordProbeLatency(probe string, latencyMs float64) {
	globalManager.probeLatency.WithLabelValues(probe).Observe(latencyMs)
}

// RecordAggregationLatency records how long profile aggregation took.
func RecordAggregationLatency(latencyMs float64) {
	globalManager.aggregationLatency.Observe(latencyMs)
}

// Collector.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordPayloadIngested increments the stored payload counter.
func RecordPayloadIngested(kind string) {
	globalManager.payloadsIngested.WithLabelValues(kind).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
