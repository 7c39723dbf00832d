package core

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBaseServer_FailFast_EmptyNamePanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for empty name")
		}
	}()
	_ = NewBaseServer("", nil)
}

func TestBaseServer_Start_FailFast_RollbackStartedOnHookError(t *testing.T) {
	t.Parallel()

	bs := NewBaseServer("test", NewNopLogger())
	bs.SetHooks(
		func() error { return errors.New("boom") },
		func() error { return nil },
	)

	if err := bs.Start(); err == nil {
		t.Fatalf("expected error")
	}
	if bs.IsStarted() {
		t.Fatalf("expected started=false after start hook error")
	}
}

func TestBaseServer_Start_Twice(t *testing.T) {
	t.Parallel()

	bs := NewBaseServer("test", NewNopLogger())
	release := make(chan struct{})
	bs.SetHooks(func() error { <-release; return nil }, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- bs.Start() }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !bs.IsStarted() {
		time.Sleep(5 * time.Millisecond)
	}

	if err := bs.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
}

func TestBaseServer_Start_BlocksButMarksStarted(t *testing.T) {
	bs := NewBaseServer("test", NewNopLogger())

	release := make(chan struct{})
	var entered int64
	bs.SetHooks(
		func() error {
			atomic.AddInt64(&entered, 1)
			<-release
			return nil
		},
		func() error { return nil },
	)

	errCh := make(chan error, 1)
	go func() { errCh <- bs.Start() }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt64(&entered) == 1 && bs.IsStarted() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt64(&entered) != 1 {
		close(release)
		t.Fatalf("expected start hook to be entered")
	}
	if !bs.IsStarted() {
		close(release)
		t.Fatalf("expected IsStarted()=true while start hook is blocking")
	}

	close(release)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("unexpected start error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("start did not return after unblocking hook")
	}
}

func TestBaseServer_Stop_Idempotent(t *testing.T) {
	t.Parallel()

	bs := NewBaseServer("test", NewNopLogger())
	var stops int64
	bs.SetHooks(nil, func() error {
		atomic.AddInt64(&stops, 1)
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := bs.Stop(); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	}
	if got := atomic.LoadInt64(&stops); got != 1 {
		t.Fatalf("stop hook ran %d times, want 1", got)
	}
	if !bs.IsStopped() {
		t.Fatalf("expected IsStopped()=true")
	}
}
