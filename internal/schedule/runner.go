package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DispatchFunc hands a fired callback to whoever owns execution. It must give
// up when ctx is done.
type DispatchFunc func(ctx context.Context, fn func())

// Runner drives tasks from real timers. Callbacks are not run on the timer
// goroutine; they are handed to the dispatch function so that a single loop
// can execute them in order with everything else.
type Runner struct {
	ctx      context.Context
	cancel   context.CancelFunc
	dispatch DispatchFunc
	wg       sync.WaitGroup
}

func NewRunner(ctx context.Context, dispatch DispatchFunc) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		ctx:      ctx,
		cancel:   cancel,
		dispatch: dispatch,
	}
}

type runnerTask struct {
	cancel  context.CancelFunc
	stopped atomic.Bool
}

func (t *runnerTask) Stop() {
	t.stopped.Store(true)
	t.cancel()
}

func (r *Runner) Every(interval time.Duration, fn func()) Task {
	ctx, cancel := context.WithCancel(r.ctx)
	t := &runnerTask{cancel: cancel}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.dispatch(ctx, t.guard(fn))
			}
		}
	}()
	return t
}

func (r *Runner) After(delay time.Duration, fn func()) Task {
	ctx, cancel := context.WithCancel(r.ctx)
	t := &runnerTask{cancel: cancel}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
			r.dispatch(ctx, t.guard(fn))
		}
	}()
	return t
}

// guard drops a callback that was already queued when the task got stopped.
func (t *runnerTask) guard(fn func()) func() {
	return func() {
		if t.stopped.Load() {
			return
		}
		fn()
	}
}

// Close stops every task and waits for the timer goroutines to exit.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}
