package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fluxorio/lineserve/pkg/core"
)

// defaultExecutor runs tasks on a fixed set of goroutines. The queue is a
// bounded Channel: the executor owns the only Sender, every worker owns a
// Receiver clone.
type defaultExecutor struct {
	tasks   *Sender[Task]
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  core.Logger

	fatalMu sync.Mutex
	fatal   error

	runningTasks   int64
	completedTasks int64
	failedTasks    int64
	panickedTasks  int64
	rejectedTasks  int64
}

// ExecutorConfig configures an Executor
type ExecutorConfig struct {
	Workers   int         // Number of worker goroutines
	QueueSize int         // Maximum queue size (bounded for backpressure)
	Logger    core.Logger // Defaults to core.NewDefaultLogger()
}

// DefaultExecutorConfig returns default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Workers:   4,
		QueueSize: 64,
	}
}

// NewExecutor creates an Executor and starts its workers. The context is
// passed to every task and cancelled when Shutdown times out.
func NewExecutor(ctx context.Context, config ExecutorConfig) Executor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 64
	}
	if config.Logger == nil {
		config.Logger = core.NewDefaultLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	tx, rx := NewChannel[Task](config.QueueSize)

	e := &defaultExecutor{
		tasks:   tx,
		workers: config.Workers,
		ctx:     ctx,
		cancel:  cancel,
		logger:  config.Logger,
	}

	e.wg.Add(e.workers)
	for i := 0; i < e.workers; i++ {
		r := rx
		if i > 0 {
			r = rx.Clone()
		}
		go e.worker(i, r)
	}
	return e
}

func (e *defaultExecutor) worker(id int, rx *Receiver[Task]) {
	defer e.wg.Done()
	defer rx.Close()

	for task := range rx.All() {
		e.run(id, task)
	}
}

func (e *defaultExecutor) run(id int, task Task) {
	atomic.AddInt64(&e.runningTasks, 1)
	err := safeExecute(e.ctx, task)
	atomic.AddInt64(&e.runningTasks, -1)
	if err != nil {
		e.recordFailure(id, task, err)
	}
	atomic.AddInt64(&e.completedTasks, 1)
}

func (e *defaultExecutor) recordFailure(id int, task Task, err error) {
	atomic.AddInt64(&e.failedTasks, 1)
	var pe *PanicError
	if errors.As(err, &pe) {
		atomic.AddInt64(&e.panickedTasks, 1)
		e.logger.Errorf("worker %d: task %s panicked (isolated): %v", id, task.Name(), pe.Value)
	} else {
		e.logger.Errorf("worker %d: task %s failed: %v", id, task.Name(), err)
	}

	if errors.Is(err, ErrLockPoisoned) {
		e.fatalMu.Lock()
		if e.fatal == nil {
			e.fatal = fmt.Errorf("task %s: %w", task.Name(), err)
		}
		e.fatalMu.Unlock()
	}
}

// Submit implements Executor interface
func (e *defaultExecutor) Submit(task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	switch err := e.tasks.TrySend(task); {
	case err == nil:
		return nil
	case errors.Is(err, ErrChannelFull):
		atomic.AddInt64(&e.rejectedTasks, 1)
		return ErrPoolFull
	default:
		return ErrPoolClosed
	}
}

// SubmitWait implements Executor interface
func (e *defaultExecutor) SubmitWait(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	err := e.tasks.SendContext(ctx, task)
	if errors.Is(err, ErrChannelClosed) {
		return ErrPoolClosed
	}
	return err
}

// Shutdown implements Executor interface
func (e *defaultExecutor) Shutdown(ctx context.Context) error {
	e.tasks.Close()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return e.Err()
	case <-ctx.Done():
		e.cancel()
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// Err implements Executor interface
func (e *defaultExecutor) Err() error {
	e.fatalMu.Lock()
	defer e.fatalMu.Unlock()
	return e.fatal
}

// Stats implements Executor interface
func (e *defaultExecutor) Stats() ExecutorStats {
	queued := int64(e.tasks.Len())
	capacity := e.tasks.Cap()
	util := float64(queued) / float64(capacity) * 100.0
	if util > 100.0 {
		util = 100.0
	}

	return ExecutorStats{
		QueuedTasks:      queued,
		Workers:          e.workers,
		RunningTasks:     atomic.LoadInt64(&e.runningTasks),
		CompletedTasks:   atomic.LoadInt64(&e.completedTasks),
		FailedTasks:      atomic.LoadInt64(&e.failedTasks),
		PanickedTasks:    atomic.LoadInt64(&e.panickedTasks),
		RejectedTasks:    atomic.LoadInt64(&e.rejectedTasks),
		QueueCapacity:    capacity,
		QueueUtilization: util,
	}
}
