package tcp

import "testing"

func TestBackpressureController_FailFast_CapacityExceeded(t *testing.T) {
	t.Parallel()

	bc := NewBackpressureController(2)

	if !bc.TryAcquire() {
		t.Fatalf("expected first acquire to succeed")
	}
	if !bc.TryAcquire() {
		t.Fatalf("expected second acquire to succeed")
	}
	if bc.TryAcquire() {
		t.Fatalf("expected third acquire to fail-fast")
	}

	m := bc.GetMetrics()
	if m.RejectedCount != 1 {
		t.Fatalf("expected rejected count 1, got %d", m.RejectedCount)
	}
	if m.Utilization != 100 {
		t.Fatalf("expected utilization 100, got %v", m.Utilization)
	}

	bc.Release()
	if !bc.TryAcquire() {
		t.Fatalf("expected acquire to succeed after release")
	}
}

func TestBackpressureController_Unlimited(t *testing.T) {
	t.Parallel()

	bc := NewBackpressureController(0)
	for i := 0; i < 1000; i++ {
		if !bc.TryAcquire() {
			t.Fatalf("unlimited controller rejected acquire %d", i)
		}
	}
	if got := bc.GetMetrics().CurrentLoad; got != 1000 {
		t.Fatalf("CurrentLoad = %d, want 1000", got)
	}
}
