package core

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithConnID(t *testing.T) {
	ctx := WithConnID(context.Background(), "conn-1")

	if got := ConnIDFrom(ctx); got != "conn-1" {
		t.Errorf("ConnIDFrom() = %v, want conn-1", got)
	}
}

func TestConnIDFrom_Missing(t *testing.T) {
	if got := ConnIDFrom(context.Background()); got != "" {
		t.Errorf("ConnIDFrom() = %v, want empty string", got)
	}
}

func TestNewConnID(t *testing.T) {
	id1 := NewConnID()
	id2 := NewConnID()

	if id1 == id2 {
		t.Error("NewConnID() should return unique IDs")
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Errorf("NewConnID() = %q is not a UUID: %v", id1, err)
	}
}
