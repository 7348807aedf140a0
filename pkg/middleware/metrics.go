package middleware

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/retain/pkg/protocol"
)

// MetricsConfig configures the HTTP and session metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "retain").
	Namespace string

	// Subsystem is the metrics subsystem (default: "http").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the metrics.
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
		Subsystem: "http",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records HTTP requests and WebSocket session traffic. It
// implements server.Observer. A nil *Metrics records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	framesSent      *prometheus.CounterVec
	events          *prometheus.CounterVec
	handshakeReject *prometheus.CounterVec
	wsErrors        *prometheus.CounterVec
}

// NewMetrics registers the collectors with the configured registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total HTTP requests by route, method and status",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "HTTP requests being served, including open WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),

		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "session",
			Name:        "frames_sent_total",
			Help:        "Frames written to hosts by frame type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "session",
			Name:        "events_total",
			Help:        "Host events received by delivery result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		handshakeReject: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "session",
			Name:        "handshake_rejections_total",
			Help:        "Rejected handshakes by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "session",
			Name:        "websocket_errors_total",
			Help:        "WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Handler is router middleware recording every request under its route
// pattern. Mount it with Use on a chi router so the pattern is known once
// the request has been routed.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(responseStatus(ww, r))).Inc()
	})
}

// FrameSent counts one frame written to a host.
func (m *Metrics) FrameSent(t protocol.FrameType) {
	if m != nil {
		m.framesSent.WithLabelValues(t.String()).Inc()
	}
}

// EventReceived counts one host event. delivered is false when no listener
// matched it.
func (m *Metrics) EventReceived(delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "dropped"
	}
	m.events.WithLabelValues(result).Inc()
}

// HandshakeRejected counts one refused ClientHello.
func (m *Metrics) HandshakeRejected(status protocol.HandshakeStatus) {
	if m != nil {
		m.handshakeReject.WithLabelValues(status.String()).Inc()
	}
}

// WebSocketError counts one connection or framing error.
func (m *Metrics) WebSocketError(err error) {
	if m != nil && err != nil {
		m.wsErrors.WithLabelValues(categorizeError(err)).Inc()
	}
}

// routePattern returns the matched chi pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// responseStatus reports the written status. Hijacked upgrades never write
// through the wrapper.
func responseStatus(ww chimw.WrapResponseWriter, r *http.Request) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	if websocket.IsWebSocketUpgrade(r) {
		return http.StatusSwitchingProtocols
	}
	return http.StatusOK
}

// categorizeError keeps error labels low-cardinality.
func categorizeError(err error) string {
	var ne net.Error
	switch {
	case errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case websocket.IsUnexpectedCloseError(err):
		return "unexpected_close"
	case errors.Is(err, io.ErrUnexpectedEOF), strings.HasPrefix(err.Error(), "protocol:"):
		return "decode"
	case errors.Is(err, websocket.ErrCloseSent), errors.Is(err, net.ErrClosed):
		return "closed"
	default:
		return "internal"
	}
}
