package bus

import (
	"context"
	"errors"
	"testing"
)

func TestLocalPublisher(t *testing.T) {
	p := NewLocalPublisher()
	ctx := context.Background()

	sub1 := p.Subscribe(1)
	sub2 := p.Subscribe(1)

	if err := p.Publish(ctx, Event{ConnID: "a", Status: 200}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if ev := <-sub1; ev.ConnID != "a" {
		t.Errorf("sub1 expected conn a, got %q", ev.ConnID)
	}
	if ev := <-sub2; ev.ConnID != "a" {
		t.Errorf("sub2 expected conn a, got %q", ev.ConnID)
	}
}

func TestLocalPublisher_FullSubscriberDoesNotBlock(t *testing.T) {
	p := NewLocalPublisher()
	ctx := context.Background()

	sub := p.Subscribe(1)
	for i := 0; i < 3; i++ {
		if err := p.Publish(ctx, Event{Status: 200}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if len(sub) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(sub))
	}
}

func TestLocalPublisher_Close(t *testing.T) {
	p := NewLocalPublisher()
	sub := p.Subscribe(0)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub; ok {
		t.Fatal("subscriber channel should be closed")
	}
	if err := p.Publish(context.Background(), Event{}); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("Publish after Close = %v, want ErrPublisherClosed", err)
	}
	if _, ok := <-p.Subscribe(1); ok {
		t.Fatal("subscribe after Close should return a closed channel")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

type failingPublisher struct{ closed bool }

func (f *failingPublisher) Publish(context.Context, Event) error { return errors.New("down") }
func (f *failingPublisher) Close() error                         { f.closed = true; return nil }

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	local := NewLocalPublisher()
	ch := local.Subscribe(1)
	failing := &failingPublisher{}

	pub := Multi(failing, local)
	err := pub.Publish(context.Background(), Event{ConnID: "c1", Status: 200})
	if err == nil || err.Error() != "down" {
		t.Fatalf("Publish() error = %v, want down", err)
	}
	select {
	case ev := <-ch:
		if ev.ConnID != "c1" {
			t.Fatalf("ConnID = %q, want c1", ev.ConnID)
		}
	default:
		t.Fatal("local subscriber missed the event after an earlier publisher failed")
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !failing.closed {
		t.Fatal("Close() did not reach every publisher")
	}
	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel should be closed")
	}
}
