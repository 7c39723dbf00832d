package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fluxorio/lineserve/pkg/core"
)

func newTestExecutor(t *testing.T, workers, queue int) Executor {
	t.Helper()
	e := NewExecutor(context.Background(), ExecutorConfig{
		Workers:   workers,
		QueueSize: queue,
		Logger:    core.NewNopLogger(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e
}

func TestNewExecutor(t *testing.T) {
	executor := NewExecutor(context.Background(), DefaultExecutorConfig())

	if executor == nil {
		t.Fatal("NewExecutor() should not return nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := executor.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestExecutor_Submit(t *testing.T) {
	executor := newTestExecutor(t, 2, 10)

	if err := executor.Submit(nil); err == nil {
		t.Error("Submit() with nil task should fail")
	}

	h, err := Go(executor, "answer", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Go() error = %v", err)
	}
	if v, err := h.Join(); err != nil || v != 42 {
		t.Fatalf("Join() = %d, %v; want 42, nil", v, err)
	}
}

func TestExecutor_Backpressure(t *testing.T) {
	executor := newTestExecutor(t, 1, 1)

	block := make(chan struct{})
	started := make(chan struct{})
	_ = executor.Submit(NewNamedTask("blocking", func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}))
	<-started

	if err := executor.Submit(NewNamedTask("fill", func(ctx context.Context) error { return nil })); err != nil {
		t.Fatalf("Submit() to fill queue error = %v", err)
	}
	err := executor.Submit(NewNamedTask("overflow", func(ctx context.Context) error { return nil }))
	if !errors.Is(err, ErrPoolFull) {
		t.Fatalf("Submit() error = %v, want ErrPoolFull", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := executor.SubmitWait(ctx, TaskFunc(func(ctx context.Context) error { return nil })); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("SubmitWait() error = %v, want deadline exceeded", err)
	}

	close(block)
	if got := executor.Stats().RejectedTasks; got != 1 {
		t.Fatalf("RejectedTasks = %d, want 1", got)
	}
}

func TestExecutor_PanicIsolated(t *testing.T) {
	executor := newTestExecutor(t, 1, 10)

	h, _ := Go(executor, "panics", func(ctx context.Context) (int, error) {
		panic("bad task")
	})
	if _, err := h.Join(); err == nil {
		t.Fatal("expected error from panicking task")
	}

	// The single worker must survive the panic.
	h2, _ := Go(executor, "after", func(ctx context.Context) (int, error) { return 7, nil })
	if v, err := h2.Join(); err != nil || v != 7 {
		t.Fatalf("Join() = %d, %v; want 7, nil", v, err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && executor.Stats().CompletedTasks < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	stats := executor.Stats()
	if stats.PanickedTasks != 1 || stats.FailedTasks != 1 {
		t.Fatalf("stats = %+v, want 1 panicked / 1 failed", stats)
	}
}

func TestExecutor_ShutdownDrainsQueue(t *testing.T) {
	executor := NewExecutor(context.Background(), ExecutorConfig{
		Workers:   2,
		QueueSize: 100,
		Logger:    core.NewNopLogger(),
	})

	var ran int64
	for i := 0; i < 50; i++ {
		if err := executor.SubmitWait(context.Background(), TaskFunc(func(ctx context.Context) error {
			atomic.AddInt64(&ran, 1)
			return nil
		})); err != nil {
			t.Fatalf("SubmitWait() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := executor.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := atomic.LoadInt64(&ran); got != 50 {
		t.Fatalf("ran %d tasks, want 50", got)
	}
	if err := executor.Submit(TaskFunc(func(ctx context.Context) error { return nil })); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Submit() after Shutdown error = %v, want ErrPoolClosed", err)
	}
}

func TestExecutor_PoisonIsFatal(t *testing.T) {
	executor := NewExecutor(context.Background(), ExecutorConfig{
		Workers:   2,
		QueueSize: 10,
		Logger:    core.NewNopLogger(),
	})
	cell := NewCell(0)

	h, _ := Go(executor, "crash", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, cell.Update(func(v *int) error { panic("torn write") })
	})
	_, _ = h.Join()

	h2, _ := Go(executor, "inc", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, cell.Update(func(v *int) error { *v++; return nil })
	})
	if _, err := h2.Join(); !errors.Is(err, ErrLockPoisoned) {
		t.Fatalf("Join() error = %v, want ErrLockPoisoned", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := executor.Shutdown(ctx); !errors.Is(err, ErrLockPoisoned) {
		t.Fatalf("Shutdown() error = %v, want ErrLockPoisoned", err)
	}
}

func TestExecutor_Stats(t *testing.T) {
	executor := newTestExecutor(t, 2, 10)

	stats := executor.Stats()

	if stats.Workers != 2 {
		t.Errorf("Stats().Workers = %d, want 2", stats.Workers)
	}
	if stats.QueueCapacity != 10 {
		t.Errorf("Stats().QueueCapacity = %d, want 10", stats.QueueCapacity)
	}
}
