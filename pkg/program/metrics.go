package program

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures runtime metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "retain").
	Namespace string

	// Subsystem is the metrics subsystem (default: "program").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update and render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures runtime metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "retain",
		Subsystem: "program",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors shared by runtimes. Create it once
// per registry and pass it to every runtime with WithMetrics.
type Metrics struct {
	messages       *prometheus.CounterVec
	updateDuration prometheus.Histogram
	renderDuration prometheus.Histogram
	patchOps       prometheus.Counter
	decodeFailures prometheus.Counter
	subscriptions  prometheus.Gauge
	queueDepth     prometheus.Gauge
	runtimes       prometheus.Gauge
}

// NewMetrics registers the runtime collectors.
//
// Metrics collected:
//   - retain_program_messages_total: Counter of messages by result
//   - retain_program_update_duration_seconds: Histogram of Update calls
//   - retain_program_render_duration_seconds: Histogram of view, diff and apply
//   - retain_program_patch_ops_total: Counter of applied patch operations
//   - retain_program_decode_failures_total: Counter of dropped native events
//   - retain_program_subscriptions_active: Gauge of installed subscriptions
//   - retain_program_queue_depth: Gauge of queued messages
//   - retain_program_runtimes_active: Gauge of running runtimes
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "messages_total",
			Help:        "Total number of messages by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "Update duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "View, diff and apply duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		patchOps: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patch_ops_total",
			Help:        "Total number of applied patch operations",
			ConstLabels: config.ConstLabels,
		}),

		decodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "decode_failures_total",
			Help:        "Total number of native events dropped by their decoder",
			ConstLabels: config.ConstLabels,
		}),

		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscriptions_active",
			Help:        "Number of installed subscriptions",
			ConstLabels: config.ConstLabels,
		}),

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "queue_depth",
			Help:        "Number of queued messages",
			ConstLabels: config.ConstLabels,
		}),

		runtimes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runtimes_active",
			Help:        "Number of running runtimes",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Message results.
const (
	resultProcessed = "processed"
	resultDropped   = "dropped"
	resultPanic     = "panic"
)

// The recording methods accept a nil receiver so runtimes without metrics
// need no checks.

func (m *Metrics) message(result string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(result).Inc()
}

func (m *Metrics) update(d time.Duration) {
	if m == nil {
		return
	}
	m.updateDuration.Observe(d.Seconds())
}

func (m *Metrics) render(d time.Duration, ops int) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
	m.patchOps.Add(float64(ops))
}

func (m *Metrics) decodeFailure() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

func (m *Metrics) subscriptionDelta(n int) {
	if m == nil || n == 0 {
		return
	}
	m.subscriptions.Add(float64(n))
}

func (m *Metrics) queued(n int) {
	if m == nil || n == 0 {
		return
	}
	m.queueDepth.Add(float64(n))
}

func (m *Metrics) running(n int) {
	if m == nil {
		return
	}
	m.runtimes.Add(float64(n))
}
