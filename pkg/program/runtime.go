package program

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vango-dev/retain/pkg/event"
	"github.com/vango-dev/retain/pkg/live"
	"github.com/vango-dev/retain/pkg/sub"
	"github.com/vango-dev/retain/pkg/vdom"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/retain/pkg/program"

// Program is the application contract.
type Program[M, Msg any] struct {
	// Init builds the first model from the runtime flags.
	Init func(flags any) (M, Cmd)

	// Update folds one message into the model.
	Update func(msg Msg, model M) (M, Cmd)

	// View describes the UI for a model.
	View func(model M) *vdom.Node

	// Subscriptions lists the sources the model wants. Optional.
	Subscriptions func(model M) []sub.Descriptor
}

// Runtime runs one program instance.
type Runtime[M, Msg any] struct {
	id         string
	program    Program[M, Msg]
	binding    live.Binding
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	dispatcher Dispatcher
	subs       sub.Installer
	ownSubs    *sub.Manager
	flags      any
	coalesce   bool

	queue   *queue
	fatal   chan error
	done    chan struct{}
	started atomic.Bool

	mu    sync.RWMutex
	model M

	// Owned by the loop
	view   *vdom.Node
	tree   *live.Tree
	active []sub.Descriptor
}

// New creates a runtime for p rendering through b. Messages sent before
// Run are processed once the first view is mounted.
func New[M, Msg any](p Program[M, Msg], b live.Binding, opts ...Option) *Runtime[M, Msg] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	r := &Runtime[M, Msg]{
		id:         o.id,
		program:    p,
		binding:    b,
		logger:     o.logger.With("program_id", o.id),
		metrics:    o.metrics,
		tracer:     o.tracer,
		dispatcher: o.dispatcher,
		subs:       o.subs,
		flags:      o.flags,
		coalesce:   o.coalesce,
		queue:      newQueue(),
		fatal:      make(chan error, 1),
		done:       make(chan struct{}),
	}
	if r.dispatcher == nil {
		r.dispatcher = &GoDispatcher{Logger: r.logger}
	}
	if r.subs == nil {
		r.ownSubs = sub.NewManager(sub.WithLogger(r.logger), sub.WithErrorHandler(r.subscriptionFailed))
		r.subs = r.ownSubs
	}
	return r
}

// ID returns the runtime ID.
func (r *Runtime[M, Msg]) ID() string {
	return r.id
}

// Model returns the last committed model.
func (r *Runtime[M, Msg]) Model() M {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.model
}

// Done is closed when Run returns.
func (r *Runtime[M, Msg]) Done() <-chan struct{} {
	return r.done
}

// Send queues msg. It is safe to call from any goroutine; messages sent
// after the runtime stopped are dropped. Nil messages are ignored.
func (r *Runtime[M, Msg]) Send(msg any) {
	if msg == nil {
		return
	}
	if r.queue.push(item{msg: msg}) {
		r.metrics.queued(1)
	}
}

// Sync blocks until every message sent before the call was processed and
// rendered.
func (r *Runtime[M, Msg]) Sync(ctx context.Context) error {
	ch := make(chan struct{})
	if !r.queue.push(item{barrier: ch}) {
		return ErrStopped
	}
	select {
	case <-ch:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run mounts the program and processes messages until ctx is cancelled or
// a fatal error occurs. Subscriptions are uninstalled and the live tree is
// unmounted before Run returns.
func (r *Runtime[M, Msg]) Run(ctx context.Context) (err error) {
	if r.program.Init == nil || r.program.Update == nil || r.program.View == nil {
		return ErrInvalidProgram
	}
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	r.metrics.running(1)
	r.logger.Info("runtime started")

	defer func() {
		cancel()
		err = errors.Join(err, r.teardown())
		r.metrics.running(-1)
		close(r.done)
		if err != nil {
			r.logger.Error("runtime stopped", "error", err)
		} else {
			r.logger.Info("runtime stopped")
		}
	}()

	if err := r.init(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-r.fatal:
			return err
		case <-r.queue.notify:
			if err := r.process(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *Runtime[M, Msg]) init(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "retain.init",
		trace.WithAttributes(attribute.String("retain.program_id", r.id)))
	defer span.End()

	model, cmd, view, err := r.safeInit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &RuntimeError{ProgramID: r.id, Op: "init", Err: err}
	}

	router := event.NewRouter(r.Send,
		event.WithLogger(r.logger),
		event.WithErrorHandler(r.decodeFailed))

	tree, err := live.Mount(r.binding, router, view)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &RuntimeError{ProgramID: r.id, Op: "mount", Err: err}
	}
	r.tree = tree
	r.view = view
	r.setModel(model)

	if err := r.syncSubscriptions(model); err != nil {
		return err
	}
	if cmd != nil {
		r.dispatcher.Dispatch(ctx, []Cmd{cmd}, r.Send)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// process handles what is queued: one message per cycle, or everything in
// a single cycle when coalescing.
func (r *Runtime[M, Msg]) process(ctx context.Context) error {
	if r.coalesce {
		items := r.queue.drain()
		r.metrics.queued(-countMessages(items))
		return r.cycle(ctx, items)
	}

	for ctx.Err() == nil {
		it, ok := r.queue.pop()
		if !ok {
			return nil
		}
		r.metrics.queued(-countMessages([]item{it}))
		if err := r.cycle(ctx, []item{it}); err != nil {
			return err
		}
	}
	return nil
}

func countMessages(items []item) int {
	n := 0
	for _, it := range items {
		if it.barrier == nil {
			n++
		}
	}
	return n
}

// cycle folds items through Update, renders once and dispatches the
// resulting commands.
func (r *Runtime[M, Msg]) cycle(ctx context.Context, items []item) error {
	var barriers []chan struct{}
	defer func() {
		for _, ch := range barriers {
			close(ch)
		}
	}()

	_, span := r.tracer.Start(ctx, "retain.update",
		trace.WithAttributes(
			attribute.String("retain.program_id", r.id),
			attribute.Int("retain.messages", len(items)),
		))

	model := r.model
	changed := false
	var cmds []Cmd
	for _, it := range items {
		if it.barrier != nil {
			barriers = append(barriers, it.barrier)
			continue
		}
		msg, ok := it.msg.(Msg)
		if !ok {
			r.logger.Warn("dropped message of unexpected type", "type", fmt.Sprintf("%T", it.msg))
			r.metrics.message(resultDropped)
			continue
		}
		next, cmd, err := r.safeUpdate(msg, model)
		if err != nil {
			span.RecordError(err)
			r.metrics.message(resultPanic)
			continue
		}
		model = next
		changed = true
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		r.metrics.message(resultProcessed)
	}
	span.End()

	if !changed {
		return nil
	}

	if err := r.commit(ctx, model); err != nil {
		var pe *PanicError
		if errors.As(err, &pe) {
			return nil
		}
		return err
	}

	if len(cmds) > 0 {
		r.dispatcher.Dispatch(ctx, cmds, r.Send)
	}
	return nil
}

// commit renders model, patches the live tree and reconciles subscriptions.
func (r *Runtime[M, Msg]) commit(ctx context.Context, model M) error {
	_, span := r.tracer.Start(ctx, "retain.render",
		trace.WithAttributes(attribute.String("retain.program_id", r.id)))
	defer span.End()

	start := time.Now()
	view, err := r.safeView(model)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.metrics.message(resultPanic)
		return err
	}

	patch := vdom.Diff(r.view, view)
	if err := r.tree.Apply(patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &RuntimeError{ProgramID: r.id, Op: "apply", Err: err}
	}
	ops := patch.Count()
	r.metrics.render(time.Since(start), ops)
	span.SetAttributes(attribute.Int("retain.patch_ops", ops))

	r.view = view
	r.setModel(model)

	if err := r.syncSubscriptions(model); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *Runtime[M, Msg]) setModel(model M) {
	r.mu.Lock()
	r.model = model
	r.mu.Unlock()
}

// syncSubscriptions installs and uninstalls the difference between the
// active set and what model asks for. Descriptors are matched by key; an
// active descriptor whose key is still wanted stays untouched.
func (r *Runtime[M, Msg]) syncSubscriptions(model M) error {
	if r.program.Subscriptions == nil {
		return nil
	}
	want, err := r.safeSubscriptions(model)
	if err != nil {
		return nil
	}

	wanted := make(map[string]bool, len(want))
	for _, d := range want {
		wanted[d.Key()] = true
	}

	removed := 0
	kept := make([]sub.Descriptor, 0, len(want))
	for i, d := range r.active {
		if wanted[d.Key()] {
			kept = append(kept, d)
			continue
		}
		if err := r.subs.Uninstall(d); err != nil {
			r.active = append(kept, r.active[i:]...)
			r.metrics.subscriptionDelta(-removed)
			return &RuntimeError{ProgramID: r.id, Op: "uninstall " + d.Key(), Err: err}
		}
		removed++
	}
	r.active = kept
	r.metrics.subscriptionDelta(-removed)

	active := make(map[string]bool, len(kept))
	for _, d := range kept {
		active[d.Key()] = true
	}
	for _, d := range want {
		key := d.Key()
		if active[key] {
			continue
		}
		if err := r.subs.Install(d, r.Send); err != nil {
			return &RuntimeError{ProgramID: r.id, Op: "install " + key, Err: err}
		}
		active[key] = true
		r.active = append(r.active, d)
		r.metrics.subscriptionDelta(1)
	}
	return nil
}

// teardown uninstalls every subscription, unmounts the tree and waits for
// running commands.
func (r *Runtime[M, Msg]) teardown() error {
	var errs []error

	r.metrics.queued(-countMessages(r.queue.close()))

	for i := len(r.active) - 1; i >= 0; i-- {
		d := r.active[i]
		if err := r.subs.Uninstall(d); err != nil {
			errs = append(errs, &RuntimeError{ProgramID: r.id, Op: "uninstall " + d.Key(), Err: err})
		}
	}
	r.metrics.subscriptionDelta(-len(r.active))
	r.active = nil
	if r.ownSubs != nil {
		r.ownSubs.Close()
	}

	if r.tree != nil {
		if err := r.tree.Unmount(); err != nil {
			errs = append(errs, &RuntimeError{ProgramID: r.id, Op: "unmount", Err: err})
		}
	}

	if w, ok := r.dispatcher.(interface{ Wait() }); ok {
		w.Wait()
	}
	return errors.Join(errs...)
}

func (r *Runtime[M, Msg]) fail(err error) {
	select {
	case r.fatal <- err:
	default:
	}
}

func (r *Runtime[M, Msg]) subscriptionFailed(key string, err error) {
	r.fail(&RuntimeError{ProgramID: r.id, Op: "subscription " + key, Err: err})
}

func (r *Runtime[M, Msg]) decodeFailed(err *event.DecodeError) {
	r.logger.Warn("event decode failed",
		"native", fmt.Sprintf("%T", err.Native),
		"error", err.Err)
	r.metrics.decodeFailure()
}

func (r *Runtime[M, Msg]) safeInit() (model M, cmd Cmd, view *vdom.Node, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("init panic",
				"panic", p,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrInitPanic, p)
		}
	}()

	model, cmd = r.program.Init(r.flags)
	view = r.program.View(model)
	return model, cmd, view, nil
}

func (r *Runtime[M, Msg]) safeUpdate(msg Msg, model M) (next M, cmd Cmd, err error) {
	start := time.Now()
	defer func() {
		r.metrics.update(time.Since(start))
		if p := recover(); p != nil {
			stack := debug.Stack()
			r.logger.Error("update panic",
				"panic", p,
				"message", fmt.Sprintf("%T", msg),
				"stack", string(stack))
			err = &PanicError{Op: "update", Value: p, Stack: stack}
		}
	}()

	next, cmd = r.program.Update(msg, model)
	return next, cmd, nil
}

func (r *Runtime[M, Msg]) safeView(model M) (view *vdom.Node, err error) {
	defer func() {
		if p := recover(); p != nil {
			stack := debug.Stack()
			r.logger.Error("view panic",
				"panic", p,
				"stack", string(stack))
			err = &PanicError{Op: "view", Value: p, Stack: stack}
		}
	}()

	return r.program.View(model), nil
}

func (r *Runtime[M, Msg]) safeSubscriptions(model M) (subs []sub.Descriptor, err error) {
	defer func() {
		if p := recover(); p != nil {
			stack := debug.Stack()
			r.logger.Error("subscriptions panic",
				"panic", p,
				"stack", string(stack))
			err = &PanicError{Op: "subscriptions", Value: p, Stack: stack}
		}
	}()

	return r.program.Subscriptions(model), nil
}
