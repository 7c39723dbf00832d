package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// WorkerHandle is the join side of a spawned unit of work. Its outcome is
// delivered to exactly one Join.
type WorkerHandle[T any] struct {
	name   string
	done   chan struct{}
	value  T
	err    error
	joined atomic.Bool
}

func newWorkerHandle[T any](name string) *WorkerHandle[T] {
	return &WorkerHandle[T]{name: name, done: make(chan struct{})}
}

func (h *WorkerHandle[T]) complete(v T, err error) {
	h.value = v
	h.err = err
	close(h.done)
}

// Name returns the worker name given at spawn time.
func (h *WorkerHandle[T]) Name() string { return h.name }

// Done is closed when the worker has finished.
func (h *WorkerHandle[T]) Done() <-chan struct{} { return h.done }

// Join waits for the worker and returns its result. A panic inside the
// worker is returned as *PanicError. Later calls return ErrAlreadyJoined.
func (h *WorkerHandle[T]) Join() (T, error) {
	if !h.joined.CompareAndSwap(false, true) {
		var zero T
		return zero, ErrAlreadyJoined
	}
	<-h.done
	return h.value, h.err
}

// JoinContext is Join with cancellation. A cancelled wait does not consume
// the outcome.
func (h *WorkerHandle[T]) JoinContext(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.Join()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Spawn runs fn on a new goroutine and returns its handle.
func Spawn[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) *WorkerHandle[T] {
	h := newWorkerHandle[T](name)
	go func() {
		v, err := capture(name, func() (T, error) { return fn(ctx) })
		h.complete(v, err)
	}()
	return h
}

// Go submits fn to an executor and returns a handle for its outcome.
// Submission errors (ErrPoolFull, ErrPoolClosed) are returned directly.
func Go[T any](exec Executor, name string, fn func(ctx context.Context) (T, error)) (*WorkerHandle[T], error) {
	h := newWorkerHandle[T](name)
	task := NewNamedTask(name, func(ctx context.Context) error {
		v, err := capture(name, func() (T, error) { return fn(ctx) })
		h.complete(v, err)
		return err
	})
	if err := exec.Submit(task); err != nil {
		return nil, err
	}
	return h, nil
}

// Outcome is the joined result of one worker.
type Outcome[T any] struct {
	Name  string
	Value T
	Err   error
}

// Outcomes are the results of JoinAll, in handle order.
type Outcomes[T any] []Outcome[T]

// JoinAll waits for every handle and collects each outcome.
func JoinAll[T any](handles []*WorkerHandle[T]) Outcomes[T] {
	out := make(Outcomes[T], 0, len(handles))
	for _, h := range handles {
		v, err := h.Join()
		out = append(out, Outcome[T]{Name: h.Name(), Value: v, Err: err})
	}
	return out
}

// Err joins the failures of every worker, or nil if all succeeded.
func (o Outcomes[T]) Err() error {
	var errs []error
	for _, oc := range o {
		if oc.Err != nil {
			errs = append(errs, fmt.Errorf("worker %s: %w", oc.Name, oc.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of workers that returned an error or panicked.
func (o Outcomes[T]) Failed() int {
	n := 0
	for _, oc := range o {
		if oc.Err != nil {
			n++
		}
	}
	return n
}

// Poisoned reports whether any worker hit a poisoned Cell.
func (o Outcomes[T]) Poisoned() bool {
	return errors.Is(o.Err(), ErrLockPoisoned)
}
