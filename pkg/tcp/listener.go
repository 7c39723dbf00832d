package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/fluxorio/lineserve/pkg/core"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// BindError is returned when the listener cannot be created.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("bind %s: %v", e.Addr, e.Err) }

func (e *BindError) Unwrap() error { return e.Err }

// AcceptError wraps an error returned by Accept.
type AcceptError struct {
	Err error
}

func (e *AcceptError) Error() string { return "accept: " + e.Err.Error() }

func (e *AcceptError) Unwrap() error { return e.Err }

// Listener is a bound TCP endpoint.
type Listener struct {
	ln     net.Listener
	logger core.Logger
	closed atomic.Bool
}

// Bind listens on addr ("host:port"). Port 0 picks an ephemeral port.
func Bind(addr string, logger core.Logger) (*Listener, error) {
	if err := core.ValidateAddress(addr); err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Listener{ln: ln, logger: logger}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops the listener; a running AcceptLoop returns nil.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.ln.Close()
}

// AcceptLoop accepts connections one at a time and passes each to fn on
// the calling goroutine. fn owns the connection. Concurrency belongs in fn
// (for example by submitting to an executor), not in the loop.
//
// Transient accept errors are logged and retried with backoff. The loop
// returns nil after Close, or an *AcceptError if the socket was closed
// underneath it.
func (l *Listener) AcceptLoop(fn func(net.Conn)) error {
	var delay time.Duration
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return &AcceptError{Err: err}
			}
			delay = nextBackoff(delay)
			l.logger.Warnf("%v; retrying in %v", &AcceptError{Err: err}, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		fn(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}
