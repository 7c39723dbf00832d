package concurrency

import (
	"context"
	"runtime/debug"
)

// Task represents a unit of work executed by an Executor.
type Task interface {
	// Execute performs the task work
	Execute(ctx context.Context) error

	// Name returns a human-readable name for logging
	Name() string
}

// TaskFunc lets a plain function be used as a Task.
type TaskFunc func(ctx context.Context) error

// Execute implements Task interface for TaskFunc
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Name returns a default name for TaskFunc
func (f TaskFunc) Name() string {
	return "task"
}

// NamedTask wraps a TaskFunc with a custom name
type NamedTask struct {
	name string
	task TaskFunc
}

// NewNamedTask creates a new NamedTask
func NewNamedTask(name string, task TaskFunc) *NamedTask {
	return &NamedTask{
		name: name,
		task: task,
	}
}

// Execute implements Task interface
func (nt *NamedTask) Execute(ctx context.Context) error {
	return nt.task(ctx)
}

// Name returns the task name
func (nt *NamedTask) Name() string {
	return nt.name
}

// capture runs fn and converts a panic into a *PanicError.
func capture[T any](name string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Name: name, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// safeExecute runs a task with panic isolation.
func safeExecute(ctx context.Context, task Task) error {
	_, err := capture(task.Name(), func() (struct{}, error) {
		return struct{}{}, task.Execute(ctx)
	})
	return err
}
