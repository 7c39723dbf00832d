package concurrency

import (
	"sync"
	"sync/atomic"
)

// Cell is a value shared between goroutines and guarded by a mutex.
//
// Pass the *Cell itself to every worker; it lives as long as its longest
// holder. Never hold a Cell across network I/O or a channel receive.
//
// If a holder panics while the lock is held, the cell becomes poisoned:
// the lock is released, and every later Acquire/Update/Load returns
// ErrLockPoisoned until ClearPoison is called.
type Cell[T any] struct {
	mu       sync.Mutex
	value    T
	poisoned atomic.Bool
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Guard is exclusive access to a Cell's value, obtained with Acquire.
type Guard[T any] struct {
	cell     *Cell[T]
	released bool
}

// Acquire blocks until the caller holds the lock. The returned guard must
// be released with a direct `defer g.Release()`.
func (c *Cell[T]) Acquire() (*Guard[T], error) {
	c.mu.Lock()
	if c.poisoned.Load() {
		c.mu.Unlock()
		return nil, ErrLockPoisoned
	}
	return &Guard[T]{cell: c}, nil
}

// Value returns a pointer to the protected value. It must not be retained
// after Release.
func (g *Guard[T]) Value() *T {
	return &g.cell.value
}

// Release unlocks the cell. When deferred directly and the holder is
// panicking, Release poisons the cell, unlocks it and re-panics.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	if r := recover(); r != nil {
		g.cell.poisoned.Store(true)
		g.cell.mu.Unlock()
		panic(r)
	}
	g.cell.mu.Unlock()
}

// Update runs fn with exclusive access to the value.
func (c *Cell[T]) Update(fn func(v *T) error) error {
	g, err := c.Acquire()
	if err != nil {
		return err
	}
	defer g.Release()
	return fn(g.Value())
}

// Load returns a copy of the value taken under the lock.
func (c *Cell[T]) Load() (T, error) {
	g, err := c.Acquire()
	if err != nil {
		var zero T
		return zero, err
	}
	defer g.Release()
	return *g.Value(), nil
}

// Store replaces the value.
func (c *Cell[T]) Store(v T) error {
	return c.Update(func(cur *T) error {
		*cur = v
		return nil
	})
}

// Poisoned reports whether a holder panicked while holding the lock.
func (c *Cell[T]) Poisoned() bool {
	return c.poisoned.Load()
}

// ClearPoison marks the cell usable again. Only call it after the value
// has been verified or reset.
func (c *Cell[T]) ClearPoison() {
	c.mu.Lock()
	c.poisoned.Store(false)
	c.mu.Unlock()
}
