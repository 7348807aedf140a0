package event

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/vango-dev/retain/pkg/vdom"
)

// Sink receives the final message of a routed event.
type Sink func(msg any)

// PropagationStopper is implemented by native events that can stop
// propagating through the rendering target.
type PropagationStopper interface {
	StopPropagation()
}

// DefaultPreventer is implemented by native events whose default action can
// be cancelled.
type DefaultPreventer interface {
	PreventDefault()
}

// DecodeError describes a decoder failure for one native event.
type DecodeError struct {
	Native any
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("event: decode %T: %v", e.Native, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Router owns the root of every Chain for one program instance.
type Router struct {
	sink    Sink
	logger  *slog.Logger
	onError func(*DecodeError)
	root    *Chain
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for decode failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithErrorHandler replaces the default decode failure hook, which logs a
// warning.
func WithErrorHandler(fn func(*DecodeError)) Option {
	return func(r *Router) {
		r.onError = fn
	}
}

// NewRouter creates a router delivering final messages to sink.
func NewRouter(sink Sink, opts ...Option) *Router {
	r := &Router{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.onError == nil {
		r.onError = func(err *DecodeError) {
			r.logger.Warn("event decode failed", "native", fmt.Sprintf("%T", err.Native), "error", err.Err)
		}
	}
	r.root = &Chain{router: r}
	return r
}

// Root returns the chain for positions outside any Tagged node.
func (r *Router) Root() *Chain {
	return r.root
}

// Chain is the tagger chain in effect at one tree position. Each link holds
// the tagger of one Tagged layer; the root link holds none.
//
// A link's tagger can be swapped while listeners bound below it stay
// installed.
type Chain struct {
	router *Router
	parent *Chain
	tagger atomic.Pointer[vdom.Tagger]
}

// Push returns a new innermost link for a Tagged layer.
func (c *Chain) Push(t *vdom.Tagger) *Chain {
	link := &Chain{router: c.router, parent: c}
	link.tagger.Store(t)
	return link
}

// Retag swaps the tagger of this link.
func (c *Chain) Retag(t *vdom.Tagger) {
	if c.parent == nil {
		return
	}
	c.tagger.Store(t)
}

// Depth returns the number of Tagged layers above this position.
func (c *Chain) Depth() int {
	n := 0
	for link := c; link.parent != nil; link = link.parent {
		n++
	}
	return n
}

// Tag folds msg through the chain, innermost tagger first.
func (c *Chain) Tag(msg any) any {
	for link := c; link.parent != nil; link = link.parent {
		msg = link.tagger.Load().Apply(msg)
	}
	return msg
}

// Handle decodes native with decode and tags the result. It reports false
// when the decoder fails or panics; the failure goes to the router's error
// hook.
func (c *Chain) Handle(native any, decode vdom.Decoder) (msg any, ok bool) {
	d, err := c.decode(native, decode)
	if err != nil {
		c.router.onError(&DecodeError{Native: native, Err: err})
		return nil, false
	}

	if d.StopPropagation {
		if s, ok := native.(PropagationStopper); ok {
			s.StopPropagation()
		}
	}
	if d.PreventDefault {
		if p, ok := native.(DefaultPreventer); ok {
			p.PreventDefault()
		}
	}

	return c.Tag(d.Message), true
}

// Dispatch handles native and delivers the resulting message to the sink.
func (c *Chain) Dispatch(native any, decode vdom.Decoder) {
	msg, ok := c.Handle(native, decode)
	if !ok || c.router.sink == nil {
		return
	}
	c.router.sink(msg)
}

func (c *Chain) decode(native any, decode vdom.Decoder) (d vdom.Decoded, err error) {
	if decode == nil {
		return d, ErrNoDecoder
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDecoderPanic, r)
		}
	}()
	return decode(native)
}
