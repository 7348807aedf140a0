package sub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

var (
	// ErrDuplicate is returned when installing a key that is already active.
	ErrDuplicate = errors.New("sub: subscription already installed")

	// ErrNotInstalled is returned when uninstalling an unknown key.
	ErrNotInstalled = errors.New("sub: subscription not installed")

	// ErrClosed is returned after the manager was closed.
	ErrClosed = errors.New("sub: manager closed")
)

// Descriptor describes one subscription. Two descriptors with the same key
// are the same subscription.
type Descriptor interface {
	Key() string

	// Run delivers messages through send until ctx is cancelled. A non-nil
	// error other than ctx.Err() is reported to the manager's error hook.
	Run(ctx context.Context, send func(msg any)) error
}

// Installer is the contract the runtime consumes.
type Installer interface {
	Install(d Descriptor, send func(msg any)) error
	Uninstall(d Descriptor) error
}

// Manager runs descriptors on goroutines.
type Manager struct {
	mu      sync.Mutex
	active  map[string]*running
	closed  bool
	logger  *slog.Logger
	onError func(key string, err error)
}

type running struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithErrorHandler sets the hook for errors returned by a running source.
func WithErrorHandler(fn func(key string, err error)) Option {
	return func(m *Manager) {
		m.onError = fn
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		active: make(map[string]*running),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Install starts d. Messages it produces go to send.
func (m *Manager) Install(d Descriptor, send func(msg any)) error {
	key := d.Key()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.active[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, key)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel, done: make(chan struct{})}
	m.active[key] = r

	guarded := func(msg any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.closed {
			send(msg)
		}
	}

	go m.run(ctx, key, d, r, guarded)
	return nil
}

func (m *Manager) run(ctx context.Context, key string, d Descriptor, r *running, send func(any)) {
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("subscription panic",
				"key", key,
				"panic", p,
				"stack", string(debug.Stack()))
			m.report(key, fmt.Errorf("sub: %q panicked: %v", key, p))
		}
	}()

	err := d.Run(ctx, send)
	if err != nil && ctx.Err() == nil {
		m.report(key, err)
	}
}

func (m *Manager) report(key string, err error) {
	if m.onError != nil {
		m.onError(key, err)
		return
	}
	m.logger.Warn("subscription failed", "key", key, "error", err)
}

// Uninstall stops the subscription with d's key. When it returns, no
// further message from that subscription reaches send.
func (m *Manager) Uninstall(d Descriptor) error {
	key := d.Key()

	m.mu.Lock()
	r, ok := m.active[key]
	if ok {
		delete(m.active, key)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotInstalled, key)
	}

	r.stop()
	return nil
}

// stop blocks further sends, then waits for the source to exit.
func (r *running) stop() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	<-r.done
}

// Active returns the number of running subscriptions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Close stops every subscription and rejects later installs.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	active := m.active
	m.active = make(map[string]*running)
	m.mu.Unlock()

	for _, r := range active {
		r.stop()
	}
}

// source is a Descriptor built from a function.
type source struct {
	key string
	run func(ctx context.Context, send func(any)) error
}

func (s source) Key() string { return s.key }

func (s source) Run(ctx context.Context, send func(any)) error { return s.run(ctx, send) }

// Source creates a descriptor from a run function.
func Source(key string, run func(ctx context.Context, send func(msg any)) error) Descriptor {
	return source{key: key, run: run}
}

// Every delivers fn(t) on every tick of a d interval.
func Every(key string, d time.Duration, fn func(time.Time) any) Descriptor {
	return Source(key, func(ctx context.Context, send func(any)) error {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case t := <-ticker.C:
				send(fn(t))
			}
		}
	})
}

// Channel delivers fn(v) for every value received from ch until ch closes.
func Channel[T any](key string, ch <-chan T, fn func(T) any) Descriptor {
	return Source(key, func(ctx context.Context, send func(any)) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v, ok := <-ch:
				if !ok {
					return nil
				}
				send(fn(v))
			}
		}
	})
}
