// Package ratelimit provides the per-connector outbound request scheduler:
// a FIFO queue whose tasks are dispatched no closer together than a fixed
// interval, regardless of how long each task takes to complete.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Task is a deferred unit of work owned by the limiter from enqueue to
// completion.
type Task func(ctx context.Context) (any, error)

// Result carries a completed task's value or error
type Result struct {
	Value any
	Err   error
}

// Limiter dispatches queued tasks in strict FIFO order with at least one
// interval between consecutive dispatch start times. Dispatch and completion
// are decoupled: a slow task never delays the next dispatch, so tasks may
// overlap when the interval is shorter than a call's round trip. Published
// platform limits gate request starts, not concurrency, so this is the
// intended behavior.
//
// A failed task fails only its own caller; the queue keeps draining. The
// drain goroutine exits when the queue empties, so an idle limiter costs
// nothing.
type Limiter struct {
	interval time.Duration
	gate     *rate.Limiter

	mu      sync.Mutex
	queue   []*pending
	running bool
}

type pending struct {
	ctx  context.Context
	fn   Task
	done chan Result
}

// New creates a limiter that dispatches at most one task per interval
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		gate:     rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Interval returns the configured dispatch interval
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Len returns the number of tasks waiting to be dispatched
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Schedule enqueues fn and blocks until it completes, returning exactly what
// fn returns. When the limiter is idle the first task dispatches
// immediately. A caller whose context is cancelled while waiting stops
// waiting, but the task itself still runs to completion; there are no
// cancellation semantics for queued work.
func (l *Limiter) Schedule(ctx context.Context, fn Task) (any, error) {
	p := &pending{ctx: ctx, fn: fn, done: make(chan Result, 1)}

	l.mu.Lock()
	l.queue = append(l.queue, p)
	if !l.running {
		l.running = true
		go l.drain()
	}
	l.mu.Unlock()

	select {
	case r := <-p.done:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// drain pops tasks in FIFO order, waiting out the interval gate before each
// dispatch, and exits once the queue is empty.
func (l *Limiter) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			l.mu.Unlock()
			return
		}
		p := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		// The gate is never cancelled: dispatch order is a process-wide
		// guarantee independent of any single caller's context.
		_ = l.gate.Wait(context.Background())

		go func(p *pending) {
			value, err := p.fn(p.ctx)
			p.done <- Result{Value: value, Err: err}
		}(p)
	}
}

// Do schedules fn on the limiter and returns its typed result
func Do[T any](ctx context.Context, l *Limiter, fn func(ctx context.Context) (T, error)) (T, error) {
	value, err := l.Schedule(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	result, _ := value.(T)
	return result, err
}
