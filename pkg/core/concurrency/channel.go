package concurrency

import (
	"context"
	"iter"
	"sync"

	"github.com/fluxorio/lineserve/pkg/core/failfast"
)

// NewChannel creates a FIFO channel and returns its first sender and
// receiver handles. capacity 0 makes the channel unbounded.
//
// Both handle kinds can be cloned. The channel is closed for receiving once
// every Sender is closed and the queue is drained; sends fail with
// ErrChannelClosed once every Receiver is closed.
func NewChannel[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity < 0 {
		capacity = 0
	}
	st := &chanState[T]{
		capacity:  capacity,
		senders:   1,
		receivers: 1,
		changed:   make(chan struct{}),
	}
	return &Sender[T]{st: st}, &Receiver[T]{st: st}
}

type chanState[T any] struct {
	mu        sync.Mutex
	buf       []T
	head      int
	capacity  int
	senders   int
	receivers int

	// changed is closed and replaced whenever state changes while someone waits.
	changed chan struct{}
	waiters int
}

func (st *chanState[T]) lenLocked() int {
	return len(st.buf) - st.head
}

func (st *chanState[T]) popLocked() T {
	var zero T
	v := st.buf[st.head]
	st.buf[st.head] = zero
	st.head++
	switch {
	case st.head == len(st.buf):
		st.buf = st.buf[:0]
		st.head = 0
	case st.head >= 64 && st.head*2 >= len(st.buf):
		n := copy(st.buf, st.buf[st.head:])
		clear(st.buf[n:])
		st.buf = st.buf[:n]
		st.head = 0
	}
	return v
}

func (st *chanState[T]) notifyLocked() {
	if st.waiters > 0 {
		close(st.changed)
		st.changed = make(chan struct{})
	}
}

// waitLocked releases mu until the next state change (or ctx is done) and
// reacquires it before returning. A nil ctx waits forever.
func (st *chanState[T]) waitLocked(ctx context.Context) error {
	st.waiters++
	ch := st.changed
	st.mu.Unlock()

	var err error
	if ctx == nil {
		<-ch
	} else {
		select {
		case <-ch:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	st.mu.Lock()
	st.waiters--
	return err
}

// Sender is a producer handle.
type Sender[T any] struct {
	st     *chanState[T]
	closed bool // guarded by st.mu
}

// Send enqueues msg. On a bounded channel it blocks until there is room.
func (s *Sender[T]) Send(msg T) error {
	return s.send(nil, msg, true)
}

// SendContext is Send with cancellation while waiting for room.
func (s *Sender[T]) SendContext(ctx context.Context, msg T) error {
	return s.send(ctx, msg, true)
}

// TrySend enqueues msg without blocking; ErrChannelFull when at capacity.
func (s *Sender[T]) TrySend(msg T) error {
	return s.send(nil, msg, false)
}

func (s *Sender[T]) send(ctx context.Context, msg T, block bool) error {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	for {
		if s.closed || st.receivers == 0 {
			return ErrChannelClosed
		}
		if st.capacity == 0 || st.lenLocked() < st.capacity {
			st.buf = append(st.buf, msg)
			st.notifyLocked()
			return nil
		}
		if !block {
			return ErrChannelFull
		}
		if err := st.waitLocked(ctx); err != nil {
			return err
		}
	}
}

// Clone returns a new producer handle. Cloning a closed handle panics.
func (s *Sender[T]) Clone() *Sender[T] {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	failfast.If(!s.closed, "clone of closed sender")
	st.senders++
	return &Sender[T]{st: st}
}

// Close drops this producer handle. It is idempotent.
func (s *Sender[T]) Close() {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	st.senders--
	if st.senders == 0 {
		st.notifyLocked()
	}
}

// Len returns the number of queued messages.
func (s *Sender[T]) Len() int {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.lenLocked()
}

// Cap returns the channel capacity, 0 for unbounded.
func (s *Sender[T]) Cap() int {
	return s.st.capacity
}

// Receiver is a consumer handle.
type Receiver[T any] struct {
	st     *chanState[T]
	closed bool // guarded by st.mu
}

// Recv blocks until a message arrives. ok is false once the channel is
// closed and drained, and stays false on every later call.
func (r *Receiver[T]) Recv() (msg T, ok bool) {
	msg, ok, _ = r.recv(nil, true)
	return msg, ok
}

// RecvContext is Recv with cancellation. End of stream is (zero, false, nil).
func (r *Receiver[T]) RecvContext(ctx context.Context) (T, bool, error) {
	msg, ok, err := r.recv(ctx, true)
	if err == ErrChannelClosed {
		err = nil
	}
	return msg, ok, err
}

// TryRecv returns immediately: (msg, true, nil) when a message was queued,
// (zero, false, nil) when empty, and ErrChannelClosed at end of stream.
func (r *Receiver[T]) TryRecv() (T, bool, error) {
	return r.recv(nil, false)
}

func (r *Receiver[T]) recv(ctx context.Context, block bool) (T, bool, error) {
	var zero T
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if r.closed {
		return zero, false, ErrChannelClosed
	}
	for {
		if st.lenLocked() > 0 {
			v := st.popLocked()
			st.notifyLocked()
			return v, true, nil
		}
		if st.senders == 0 {
			return zero, false, ErrChannelClosed
		}
		if !block {
			return zero, false, nil
		}
		if err := st.waitLocked(ctx); err != nil {
			return zero, false, err
		}
	}
}

// All returns the remaining messages as a sequence. It ends when the
// channel is closed and drained and cannot be restarted.
func (r *Receiver[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			msg, ok := r.Recv()
			if !ok || !yield(msg) {
				return
			}
		}
	}
}

// Clone returns a new consumer handle. Cloning a closed handle panics.
func (r *Receiver[T]) Clone() *Receiver[T] {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	failfast.If(!r.closed, "clone of closed receiver")
	st.receivers++
	return &Receiver[T]{st: st}
}

// Close drops this consumer handle. When the last receiver closes, queued
// messages are discarded and blocked senders fail with ErrChannelClosed.
func (r *Receiver[T]) Close() {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	st.receivers--
	if st.receivers == 0 {
		clear(st.buf)
		st.buf = st.buf[:0]
		st.head = 0
		st.notifyLocked()
	}
}

// Len returns the number of queued messages.
func (r *Receiver[T]) Len() int {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.lenLocked()
}
