package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		if err := pool.Submit(ctx, i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	done := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		go func(n int) {
			pool.Submit(ctx, n)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 100; i++ {
		<-done
	}

	time.Sleep(100 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(ctx, i)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	t.Logf("processed %d jobs before shutdown", processed.Load())
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, 1, func(ctx context.Context, job int) error { return nil })
	pool.Start(context.Background())
	pool.Stop()

	if err := pool.Submit(context.Background(), 1); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}

	// second Stop must not panic on the closed channel
	pool.Stop()
}

func TestWorkerPool_TrySubmit(t *testing.T) {
	pool := NewWorkerPool(1, 1, func(ctx context.Context, job int) error { return nil })

	// not started: the buffer fills after one job
	if !pool.TrySubmit(1) {
		t.Error("expected first job to be queued")
	}
	if pool.TrySubmit(2) {
		t.Error("expected second job to be rejected while the buffer is full")
	}

	pool.Start(context.Background())
	pool.Stop()

	if pool.TrySubmit(3) {
		t.Error("expected TrySubmit to fail after Stop")
	}
}

func TestWorkerPool_OnError(t *testing.T) {
	failed := make(chan int, 1)
	pool := NewWorkerPool(1, 1, func(ctx context.Context, job int) error {
		return errors.New("boom")
	})
	pool.OnError(func(job int, err error) {
		failed <- job
	})

	pool.Start(context.Background())
	pool.Submit(context.Background(), 7)

	select {
	case job := <-failed:
		if job != 7 {
			t.Errorf("expected failed job 7, got %d", job)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for error callback")
	}

	pool.Stop()
}

func TestLoop_RunsInSubmissionOrder(t *testing.T) {
	loop := NewLoop(16)
	ctx := context.Background()
	loop.Start(ctx)
	defer loop.Stop()

	var order []int
	for i := 0; i < 10; i++ {
		n := i
		if err := loop.Post(ctx, func() { order = append(order, n) }); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
	}

	// Do runs after everything posted before it.
	var got []int
	if err := loop.Do(ctx, func() { got = append(got, order...) }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if len(got) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(got))
	}
	for i, n := range got {
		if n != i {
			t.Errorf("position %d: expected %d, got %d", i, i, n)
		}
	}
}

func TestLoop_DoHonorsContext(t *testing.T) {
	loop := NewLoop(1)
	loop.Start(context.Background())
	defer loop.Stop()

	release := make(chan struct{})
	loop.Post(context.Background(), func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	err := loop.Do(ctx, func() { ran.Store(true) })
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	// flush the queue so the abandoned job has had its chance
	if err := loop.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if ran.Load() {
		t.Error("expected abandoned job to be skipped")
	}
}

func TestLoop_DoWaitsForRunningJob(t *testing.T) {
	loop := NewLoop(1)
	loop.Start(context.Background())
	defer loop.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var finished atomic.Bool

	errc := make(chan error, 1)
	go func() {
		errc <- loop.Do(ctx, func() {
			close(started)
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
		})
	}()

	<-started
	cancel()

	if err := <-errc; err != nil {
		t.Errorf("expected nil once the job had started, got %v", err)
	}
	if !finished.Load() {
		t.Error("expected Do to return after the job finished")
	}
}
