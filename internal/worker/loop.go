package worker

import (
	"context"
	"sync/atomic"
)

const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

// Loop is a single-worker pool of closures. Everything that touches the
// command center's state runs here, one closure at a time, so the state
// itself needs no locks.
type Loop struct {
	pool *WorkerPool[func()]
}

func NewLoop(bufferSize int) *Loop {
	return &Loop{
		pool: NewWorkerPool(1, bufferSize, func(ctx context.Context, fn func()) error {
			fn()
			return nil
		}),
	}
}

func (l *Loop) Start(ctx context.Context) {
	l.pool.Start(ctx)
}

// Post queues fn without waiting for it to run.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	return l.pool.Submit(ctx, fn)
}

// Do queues fn and waits until it has run. When ctx ends while fn is still
// queued, fn is dropped and ctx.Err() is returned; once fn has started, Do
// waits for it and reports success, so an error always means fn never ran.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	done := make(chan struct{})
	if err := l.pool.Submit(ctx, func() {
		defer close(done)
		if !state.CompareAndSwap(jobQueued, jobRunning) {
			return
		}
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(jobQueued, jobAbandoned) {
			return ctx.Err()
		}
		<-done
		return nil
	}
}

func (l *Loop) Stop() {
	l.pool.Stop()
}
