package concurrency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSpawn_JoinReturnsValue(t *testing.T) {
	h := Spawn(context.Background(), "double", func(ctx context.Context) (int, error) {
		return 412 * 2, nil
	})

	v, err := h.Join()
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if v != 824 {
		t.Fatalf("Join() = %d, want 824", v)
	}
}

func TestSpawn_JoinExactlyOnce(t *testing.T) {
	h := Spawn(context.Background(), "once", func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	if _, err := h.Join(); err != nil {
		t.Fatalf("first Join() error = %v", err)
	}
	if _, err := h.Join(); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("second Join() error = %v, want ErrAlreadyJoined", err)
	}
}

func TestSpawn_PanicCaptured(t *testing.T) {
	h := Spawn(context.Background(), "boom", func(ctx context.Context) (int, error) {
		panic("thread panicked")
	})

	_, err := h.Join()
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Join() error = %v, want *PanicError", err)
	}
	if pe.Name != "boom" || pe.Value != "thread panicked" {
		t.Fatalf("PanicError = %+v", pe)
	}
	if len(pe.Stack) == 0 {
		t.Fatalf("expected stack in PanicError")
	}
}

func TestSpawn_JoinContext(t *testing.T) {
	release := make(chan struct{})
	h := Spawn(context.Background(), "slow", func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.JoinContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("JoinContext() error = %v, want deadline exceeded", err)
	}

	close(release)
	if v, err := h.Join(); err != nil || v != 1 {
		t.Fatalf("Join() after cancelled JoinContext = %d, %v", v, err)
	}
}

func TestJoinAll_ReportsEveryFailure(t *testing.T) {
	boom := errors.New("boom")
	handles := []*WorkerHandle[int]{
		Spawn(context.Background(), "ok", func(ctx context.Context) (int, error) { return 1, nil }),
		Spawn(context.Background(), "err", func(ctx context.Context) (int, error) { return 0, boom }),
		Spawn(context.Background(), "panic", func(ctx context.Context) (int, error) { panic("x") }),
	}

	out := JoinAll(handles)
	if len(out) != 3 {
		t.Fatalf("JoinAll() returned %d outcomes, want 3", len(out))
	}
	if out[0].Value != 1 || out[0].Err != nil {
		t.Errorf("outcome[0] = %+v", out[0])
	}
	if out.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", out.Failed())
	}
	if !errors.Is(out.Err(), boom) {
		t.Errorf("Err() = %v, want it to wrap boom", out.Err())
	}
	if out.Poisoned() {
		t.Errorf("Poisoned() = true, want false")
	}
}

func TestJoinAll_PoisonEscalates(t *testing.T) {
	cell := NewCell(0)
	first := Spawn(context.Background(), "crash", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, cell.Update(func(v *int) error { panic("mid-update") })
	})
	_, _ = first.Join()

	var handles []*WorkerHandle[struct{}]
	for i := 0; i < 3; i++ {
		handles = append(handles, Spawn(context.Background(), "inc", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, cell.Update(func(v *int) error { *v++; return nil })
		}))
	}

	out := JoinAll(handles)
	if !out.Poisoned() {
		t.Fatalf("expected Poisoned() after a holder panicked, err = %v", out.Err())
	}
	if out.Failed() != 3 {
		t.Fatalf("Failed() = %d, want 3", out.Failed())
	}
}
