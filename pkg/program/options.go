package program

import (
	"log/slog"

	"github.com/vango-dev/retain/pkg/sub"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	id         string
	flags      any
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	dispatcher Dispatcher
	subs       sub.Installer
	coalesce   bool
}

// WithID sets the runtime ID. A random UUID is used by default.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithFlags sets the value passed to Init.
func WithFlags(flags any) Option {
	return func(o *options) {
		o.flags = flags
	}
}

// WithLogger sets the logger. Records carry the runtime ID as program_id.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer. The global OpenTelemetry provider is used by
// default.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithDispatcher replaces the default GoDispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithSubscriptions replaces the default subscription manager. Errors from
// running sources are not seen by the runtime when a custom installer is
// used.
func WithSubscriptions(s sub.Installer) Option {
	return func(o *options) {
		o.subs = s
	}
}

// WithCoalescing folds every queued message through Update before a single
// render.
func WithCoalescing(enabled bool) Option {
	return func(o *options) {
		o.coalesce = enabled
	}
}
