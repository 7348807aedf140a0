package program

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Cmd is an effect run outside the loop. A non-nil result is sent back to
// the program as a message.
type Cmd func(ctx context.Context) any

// BatchMsg is produced by Batch; dispatchers run each command in it.
type BatchMsg []Cmd

// Batch combines commands into one. Nil commands are skipped.
func Batch(cmds ...Cmd) Cmd {
	var valid []Cmd
	for _, c := range cmds {
		if c != nil {
			valid = append(valid, c)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	}
	return func(context.Context) any {
		return BatchMsg(valid)
	}
}

// Message returns a command that produces msg immediately.
func Message(msg any) Cmd {
	return func(context.Context) any { return msg }
}

// Tick returns a command that produces fn(t) once after d.
func Tick(d time.Duration, fn func(time.Time) any) Cmd {
	return func(ctx context.Context) any {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil
		case t := <-timer.C:
			return fn(t)
		}
	}
}

// Dispatcher executes commands. Results re-enter through send.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmds []Cmd, send func(msg any))
}

// GoDispatcher runs every command on its own goroutine.
type GoDispatcher struct {
	Logger *slog.Logger

	wg sync.WaitGroup
}

// Dispatch implements Dispatcher.
func (d *GoDispatcher) Dispatch(ctx context.Context, cmds []Cmd, send func(msg any)) {
	for _, c := range cmds {
		if c == nil {
			continue
		}
		d.wg.Add(1)
		go func(c Cmd) {
			defer d.wg.Done()
			d.run(ctx, c, send)
		}(c)
	}
}

func (d *GoDispatcher) run(ctx context.Context, c Cmd, send func(any)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger().Error("command panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	msg := c(ctx)
	if msg == nil || ctx.Err() != nil {
		return
	}
	if batch, ok := msg.(BatchMsg); ok {
		d.Dispatch(ctx, batch, send)
		return
	}
	send(msg)
}

// Wait blocks until every dispatched command returned.
func (d *GoDispatcher) Wait() {
	d.wg.Wait()
}

func (d *GoDispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
