package tcp

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/lineserve/pkg/core"
	"github.com/fluxorio/lineserve/pkg/core/concurrency"
	"github.com/fluxorio/lineserve/pkg/core/failfast"
)

// TCPServer accepts connections on one goroutine and hands each to a fixed
// executor, so a slow handler never stalls the accept path.
type TCPServer struct {
	*core.BaseServer

	config *TCPServerConfig

	mu       sync.RWMutex
	listener *Listener
	stopping atomic.Bool

	executor     concurrency.Executor
	backpressure *BackpressureController
	outcomes     *concurrency.Sender[ConnOutcome]

	handler     ConnectionHandler
	middlewares []Middleware
	effective   ConnectionHandler

	// Metrics (atomic for thread-safety)
	totalAccepted       int64
	rejectedConnections int64
	handledConnections  int64
	errorConnections    int64
}

// TCPServerConfig configures the TCP server.
type TCPServerConfig struct {
	Addr string

	// Workers handle connections; MaxQueue bounds connections waiting for one.
	Workers  int
	MaxQueue int
	// MaxConns bounds in-flight connections (queued + handling). 0 means unlimited.
	MaxConns int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Logger core.Logger

	// Outcomes, when set, receives one ConnOutcome per finished connection.
	// The server owns this handle and closes it on Stop.
	Outcomes *concurrency.Sender[ConnOutcome]
}

// DefaultTCPServerConfig returns a sensible default configuration.
func DefaultTCPServerConfig(addr string) *TCPServerConfig {
	if addr == "" {
		addr = "127.0.0.1:7878"
	}
	return &TCPServerConfig{
		Addr:            addr,
		Workers:         4,
		MaxQueue:        64,
		MaxConns:        0,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// NewTCPServer creates a new TCP server. Workers start immediately; the
// listener is bound by Start or supplied to Serve.
func NewTCPServer(config *TCPServerConfig) *TCPServer {
	if config == nil {
		config = DefaultTCPServerConfig("")
	}
	if config.Addr == "" {
		config.Addr = "127.0.0.1:7878"
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxQueue < 1 {
		config.MaxQueue = 64
	}
	if config.MaxConns < 0 {
		config.MaxConns = 0
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 5 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = core.NewDefaultLogger()
	}

	s := &TCPServer{
		BaseServer: core.NewBaseServer("tcp-server", config.Logger),
		config:     config,
		executor: concurrency.NewExecutor(context.Background(), concurrency.ExecutorConfig{
			Workers:   config.Workers,
			QueueSize: config.MaxQueue,
			Logger:    config.Logger,
		}),
		backpressure: NewBackpressureController(config.MaxConns),
		outcomes:     config.Outcomes,
		handler:      HandlerFunc(func(*ConnContext) error { return nil }),
	}
	s.effective = s.handler

	s.BaseServer.SetHooks(s.doStart, s.doStop)
	return s
}

// SetHandler sets the connection handler (fail-fast on nil).
func (s *TCPServer) SetHandler(handler ConnectionHandler) {
	failfast.NotNil(handler, "tcp handler")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	s.rebuildHandlerLocked()
}

// Use adds middleware. Call before Start; the first added runs outermost.
func (s *TCPServer) Use(mw ...Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mw {
		failfast.NotNil(m, "tcp middleware")
		s.middlewares = append(s.middlewares, m)
	}
	s.rebuildHandlerLocked()
}

func (s *TCPServer) rebuildHandlerLocked() {
	h := s.handler
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		h = s.middlewares[i](h)
	}
	s.effective = h
}

// ListeningAddr returns the bound address (useful with port 0), or "".
func (s *TCPServer) ListeningAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve runs the accept loop on an already bound listener (blocking).
func (s *TCPServer) Serve(l *Listener) error {
	failfast.NotNil(l, "listener")
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	return s.Start()
}

func (s *TCPServer) doStart() error {
	s.mu.Lock()
	l := s.listener
	if l == nil {
		var err error
		l, err = Bind(s.config.Addr, s.Logger())
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.listener = l
	}
	s.mu.Unlock()

	if s.stopping.Load() {
		_ = l.Close()
		return nil
	}

	s.Logger().Infof("listening on %s (workers=%d, queue=%d)", l.Addr(), s.config.Workers, s.config.MaxQueue)
	return l.AcceptLoop(s.dispatch)
}

func (s *TCPServer) doStop() error {
	s.stopping.Store(true)

	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		_ = l.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	err := s.executor.Shutdown(ctx)

	if s.outcomes != nil {
		s.outcomes.Close()
	}
	return err
}

// Metrics returns current server metrics.
func (s *TCPServer) Metrics() ServerMetrics {
	bp := s.backpressure.GetMetrics()
	ex := s.executor.Stats()
	return ServerMetrics{
		TotalAccepted:       atomic.LoadInt64(&s.totalAccepted),
		RejectedConnections: atomic.LoadInt64(&s.rejectedConnections),
		HandledConnections:  atomic.LoadInt64(&s.handledConnections),
		ErrorConnections:    atomic.LoadInt64(&s.errorConnections),
		ActiveConnections:   bp.CurrentLoad,
		MaxConns:            s.config.MaxConns,
		Workers:             ex.Workers,
		QueuedConnections:   ex.QueuedTasks,
		QueueCapacity:       ex.QueueCapacity,
		QueueUtilization:    ex.QueueUtilization,
	}
}

// dispatch runs on the accept goroutine and must not block.
func (s *TCPServer) dispatch(conn net.Conn) {
	atomic.AddInt64(&s.totalAccepted, 1)
	accepted := time.Now()

	if !s.backpressure.TryAcquire() {
		s.reject(conn, "max in-flight connections reached")
		return
	}

	id := core.NewConnID()
	task := concurrency.NewNamedTask("conn-"+id, func(ctx context.Context) error {
		defer s.backpressure.Release()
		s.serveConn(ctx, id, conn, accepted)
		return nil
	})
	if err := s.executor.Submit(task); err != nil {
		s.backpressure.Release()
		s.reject(conn, err.Error())
	}
}

func (s *TCPServer) reject(conn net.Conn, reason string) {
	atomic.AddInt64(&s.rejectedConnections, 1)
	s.Logger().Warnf("rejecting connection from %s: %s", conn.RemoteAddr(), reason)
	_ = conn.Close()
}

func (s *TCPServer) serveConn(ctx context.Context, id string, conn net.Conn, accepted time.Time) {
	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))

	s.mu.RLock()
	h := s.effective
	s.mu.RUnlock()

	cctx := &ConnContext{
		BaseRequestContext: core.NewBaseRequestContext(),
		Context:            core.WithConnID(ctx, id),
		Conn:               conn,
		ID:                 id,
		Accepted:           accepted,
		Logger:             s.Logger().With("conn", id, "remote", conn.RemoteAddr().String()),
		LocalAddr:          conn.LocalAddr(),
		RemoteAddr:         conn.RemoteAddr(),
	}

	atomic.AddInt64(&s.handledConnections, 1)
	panicked, err := runHandler(h, cctx)
	if err != nil {
		atomic.AddInt64(&s.errorConnections, 1)
		cctx.Logger.Errorf("tcp handler error: %v", err)
	}

	// Closed is the terminal state on every path.
	_ = conn.Close()

	s.emit(ConnOutcome{
		ID:           id,
		RemoteAddr:   conn.RemoteAddr().String(),
		RequestLine:  cctx.GetString(KeyRequestLine),
		Status:       cctx.GetInt(KeyStatus, 0),
		BytesWritten: cctx.GetInt(KeyBytesWritten, 0),
		Duration:     time.Since(accepted),
		Err:          err,
		Panicked:     panicked,
	})
}

// runHandler isolates panics per connection so a bad handler cannot kill a worker.
func runHandler(h ConnectionHandler, cctx *ConnContext) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = &concurrency.PanicError{Name: "conn " + cctx.ID, Value: r, Stack: debug.Stack()}
		}
	}()
	return false, h.HandleConn(cctx)
}

func (s *TCPServer) emit(o ConnOutcome) {
	if s.outcomes == nil {
		return
	}
	if err := s.outcomes.Send(o); err != nil && !errors.Is(err, concurrency.ErrChannelClosed) {
		s.Logger().Warnf("dropping outcome for conn %s: %v", o.ID, err)
	}
}
