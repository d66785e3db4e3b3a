package worker

import (
	"context"
	"errors"
	"sync"
)

var ErrStopped = errors.New("worker pool stopped")

type ProcessFunc[J any] func(ctx context.Context, job J) error

type WorkerPool[J any] struct {
	numWorkers int
	jobs       chan J
	processor  ProcessFunc[J]
	onError    func(job J, err error)
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool[J any](numWorkers int, bufferSize int, processor ProcessFunc[J]) *WorkerPool[J] {
	return &WorkerPool[J]{
		numWorkers: numWorkers,
		jobs:       make(chan J, bufferSize),
		processor:  processor,
	}
}

// OnError registers a callback for jobs whose processor returned an error.
// It must be set before Start.
func (wp *WorkerPool[J]) OnError(fn func(job J, err error)) {
	wp.onError = fn
}

func (wp *WorkerPool[J]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool[J]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, job); err != nil && wp.onError != nil {
				wp.onError(job, err)
			}
		}
	}
}

// Submit queues a job, blocking while the buffer is full. It gives up when
// ctx is done and fails once the pool has been stopped.
func (wp *WorkerPool[J]) Submit(ctx context.Context, job J) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrStopped
	}

	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues a job only if there is room in the buffer.
func (wp *WorkerPool[J]) TrySubmit(job J) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}

	select {
	case wp.jobs <- job:
		return true
	default:
		return false
	}
}

func (wp *WorkerPool[J]) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()
}
