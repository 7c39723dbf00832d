package concurrency

import (
	"context"
)

// ExecutorStats provides statistics about executor performance
type ExecutorStats struct {
	QueuedTasks      int64   // Current number of queued tasks
	Workers          int     // Number of worker goroutines
	RunningTasks     int64   // Tasks currently executing
	CompletedTasks   int64   // Total completed tasks (including failed)
	FailedTasks      int64   // Tasks that returned an error or panicked
	PanickedTasks    int64   // Subset of FailedTasks that panicked
	RejectedTasks    int64   // Total rejected tasks (backpressure)
	QueueCapacity    int     // Maximum queue capacity
	QueueUtilization float64 // Queue utilization percentage
}

// Executor is a fixed-size pool of workers pulling tasks from a bounded queue.
type Executor interface {
	// Submit queues a task without blocking.
	// Returns ErrPoolFull when the queue is full, ErrPoolClosed after Shutdown.
	Submit(task Task) error

	// SubmitWait queues a task, waiting for room until ctx is done.
	SubmitWait(ctx context.Context, task Task) error

	// Shutdown stops accepting tasks, lets workers drain the queue and waits
	// for them (up to ctx). It returns the fatal error, if any, or a timeout.
	Shutdown(ctx context.Context) error

	// Err returns the first fatal error recorded by a task, such as a
	// poisoned lock. Per-task errors are only logged and counted.
	Err() error

	// Stats returns current executor statistics
	Stats() ExecutorStats
}
