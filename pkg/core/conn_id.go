package core

import (
	"context"

	"github.com/google/uuid"
)

type connIDKey struct{}

// WithConnID attaches a connection ID to the context.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey{}, id)
}

// ConnIDFrom returns the connection ID stored in ctx, or "".
func ConnIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(connIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewConnID generates a new connection ID.
func NewConnID() string {
	return uuid.New().String()
}
