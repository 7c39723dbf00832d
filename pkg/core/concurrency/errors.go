package concurrency

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelClosed is returned when sending after every receiver is gone,
	// or when using a handle that was already closed.
	ErrChannelClosed = errors.New("channel is closed")

	// ErrChannelFull is returned by TrySend on a bounded channel at capacity.
	ErrChannelFull = errors.New("channel is full")

	// ErrLockPoisoned is returned when a Cell's previous holder panicked while
	// holding the lock. The protected value may be inconsistent.
	ErrLockPoisoned = errors.New("lock poisoned: a previous holder panicked")

	// ErrPoolFull is returned by Executor.Submit when the queue is full (backpressure).
	ErrPoolFull = errors.New("worker pool queue is full")

	// ErrPoolClosed is returned when submitting to an executor that was shut down.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrAlreadyJoined is returned by a second Join on the same WorkerHandle.
	ErrAlreadyJoined = errors.New("worker already joined")
)

// PanicError records a panic recovered from a task or spawned worker.
type PanicError struct {
	Name  string
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Name, e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
