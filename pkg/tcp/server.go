package tcp

import (
	"context"
	"net"
	"time"

	"github.com/fluxorio/lineserve/pkg/core"
)

// Server represents a TCP server abstraction.
type Server interface {
	// Start binds the configured address and serves (blocking).
	Start() error

	// Stop stops the server gracefully.
	Stop() error

	// SetHandler sets the connection handler (fail-fast on nil).
	SetHandler(handler ConnectionHandler)

	// Metrics returns current server metrics.
	Metrics() ServerMetrics
}

// ConnectionHandler handles a single TCP connection.
// Implementations must not block forever; the server closes the connection
// after HandleConn returns.
type ConnectionHandler interface {
	HandleConn(ctx *ConnContext) error
}

// HandlerFunc adapts a function to ConnectionHandler.
type HandlerFunc func(ctx *ConnContext) error

// HandleConn implements ConnectionHandler.
func (f HandlerFunc) HandleConn(ctx *ConnContext) error {
	return f(ctx)
}

// Middleware wraps a ConnectionHandler.
type Middleware func(next ConnectionHandler) ConnectionHandler

// Keys handlers use to report what happened on a connection. Middlewares
// and the outcome stream read them back.
const (
	KeyStatus       = "status"
	KeyBytesWritten = "bytes_written"
	KeyRequestLine  = "request_line"
)

// ConnContext provides per-connection state to handlers.
type ConnContext struct {
	*core.BaseRequestContext

	Context  context.Context
	Conn     net.Conn
	ID       string
	Accepted time.Time
	Logger   core.Logger

	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

// ConnOutcome summarises one finished connection. The server emits one per
// connection on TCPServerConfig.Outcomes.
type ConnOutcome struct {
	ID           string
	RemoteAddr   string
	RequestLine  string
	Status       int
	BytesWritten int
	Duration     time.Duration
	Err          error
	Panicked     bool
}

// ServerMetrics provides TCP server performance metrics.
type ServerMetrics struct {
	TotalAccepted       int64   // Total connections accepted
	RejectedConnections int64   // Total rejected connections (backpressure)
	HandledConnections  int64   // Total connections handed to a handler
	ErrorConnections    int64   // Total connections whose handler failed
	ActiveConnections   int64   // In-flight connections (queued + handling)
	MaxConns            int     // In-flight limit, 0 means unlimited
	Workers             int     // Number of worker goroutines
	QueuedConnections   int64   // Connections waiting for a worker
	QueueCapacity       int     // Maximum queue capacity
	QueueUtilization    float64 // Queue utilization percentage
}
