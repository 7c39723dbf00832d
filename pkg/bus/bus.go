// Package bus publishes connection events to interested parties.
package bus

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrPublisherClosed = errors.New("bus: publisher closed")

// Event describes one finished connection.
type Event struct {
	ID          string    `json:"id"`
	ConnID      string    `json:"conn_id"`
	RemoteAddr  string    `json:"remote_addr"`
	RequestLine string    `json:"request_line,omitempty"`
	Status      int       `json:"status"`
	Bytes       int       `json:"bytes"`
	DurationMs  float64   `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	Panicked    bool      `json:"panicked,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher is the interface for event sinks.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// LocalPublisher fans events out to in-process subscribers.
type LocalPublisher struct {
	mu          sync.RWMutex
	subscribers []chan Event
	closed      bool
}

func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{}
}

// Subscribe returns a channel receiving every later event. It is closed
// when the publisher is closed.
func (p *LocalPublisher) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return ch
	}
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (p *LocalPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	for _, ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (p *LocalPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, ch := range p.subscribers {
		close(ch)
	}
	p.subscribers = nil
	return nil
}

type multiPublisher []Publisher

// Multi publishes every event to each of pubs in order. Publish and Close
// visit every publisher and join their errors.
func Multi(pubs ...Publisher) Publisher {
	return multiPublisher(pubs)
}

func (m multiPublisher) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
