package tcp

import (
	"sync/atomic"
)

// BackpressureController bounds in-flight connections (queued + handling).
// Connections over the limit are rejected fail-fast by the accept loop.
type BackpressureController struct {
	maxInFlight   int64 // 0 means unlimited
	currentLoad   int64 // atomic
	rejectedCount int64 // atomic
}

// NewBackpressureController creates a controller; maxInFlight <= 0 disables the limit.
func NewBackpressureController(maxInFlight int) *BackpressureController {
	if maxInFlight < 0 {
		maxInFlight = 0
	}
	return &BackpressureController{maxInFlight: int64(maxInFlight)}
}

// TryAcquire reserves a slot. It returns false if the limit is reached.
func (bc *BackpressureController) TryAcquire() bool {
	if bc.maxInFlight == 0 {
		atomic.AddInt64(&bc.currentLoad, 1)
		return true
	}
	for {
		cur := atomic.LoadInt64(&bc.currentLoad)
		if cur >= bc.maxInFlight {
			atomic.AddInt64(&bc.rejectedCount, 1)
			return false
		}
		if atomic.CompareAndSwapInt64(&bc.currentLoad, cur, cur+1) {
			return true
		}
	}
}

// Release releases a slot.
func (bc *BackpressureController) Release() {
	atomic.AddInt64(&bc.currentLoad, -1)
}

// GetMetrics returns current backpressure metrics.
func (bc *BackpressureController) GetMetrics() BackpressureMetrics {
	current := atomic.LoadInt64(&bc.currentLoad)
	util := 0.0
	if bc.maxInFlight > 0 {
		util = float64(current) / float64(bc.maxInFlight) * 100
	}
	return BackpressureMetrics{
		MaxInFlight:   bc.maxInFlight,
		CurrentLoad:   current,
		RejectedCount: atomic.LoadInt64(&bc.rejectedCount),
		Utilization:   util,
	}
}

// BackpressureMetrics provides backpressure statistics.
type BackpressureMetrics struct {
	MaxInFlight   int64   // 0 means unlimited
	CurrentLoad   int64   // In-flight connections
	RejectedCount int64   // Connections rejected by the limit
	Utilization   float64 // Percentage of MaxInFlight in use
}
