package prometheus

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fluxorio/lineserve/pkg/core"
	"github.com/fluxorio/lineserve/pkg/tcp"
)

// ConnMiddleware records connection metrics from what the handler reported
func ConnMiddleware(m *Metrics) tcp.Middleware {
	if m == nil {
		m = GetMetrics()
	}
	return func(next tcp.ConnectionHandler) tcp.ConnectionHandler {
		return tcp.HandlerFunc(func(ctx *tcp.ConnContext) error {
			defer func() {
				if r := recover(); r != nil {
					m.ConnectionPanics.Inc()
					panic(r)
				}
			}()

			err := next.HandleConn(ctx)

			m.RecordConnection(
				ctx.GetInt(tcp.KeyStatus, 0),
				time.Since(ctx.Accepted),
				ctx.GetInt(tcp.KeyBytesWritten, 0),
			)
			return err
		})
	}
}

// UpdateServerMetrics updates server metrics from a TCPServer
func UpdateServerMetrics(m *Metrics, server *tcp.TCPServer) {
	if m == nil {
		m = GetMetrics()
	}
	sm := server.Metrics()
	m.UpdateServer(
		sm.TotalAccepted,
		sm.RejectedConnections,
		sm.ActiveConnections,
		sm.QueuedConnections,
		sm.QueueUtilization,
		sm.Workers,
	)
}

// StartUpdater calls update every interval until ctx is done
func StartUpdater(ctx context.Context, interval time.Duration, update func()) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// Handler serves the gatherer in the Prometheus text format
func Handler(g prometheus.Gatherer) fasthttp.RequestHandler {
	if g == nil {
		g = DefaultRegistry
	}
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// EndpointConfig configures the metrics endpoint
type EndpointConfig struct {
	Path     string
	Gatherer prometheus.Gatherer
	Logger   core.Logger
}

// Serve serves the metrics endpoint on ln until ctx is done
func Serve(ctx context.Context, ln net.Listener, cfg EndpointConfig) error {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NewDefaultLogger()
	}
	metricsHandler := Handler(cfg.Gatherer)

	srv := &fasthttp.Server{
		Name: "lineserve-metrics",
		Handler: func(rc *fasthttp.RequestCtx) {
			if string(rc.Path()) != cfg.Path {
				rc.Error("not found", fasthttp.StatusNotFound)
				return
			}
			metricsHandler(rc)
		},
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	cfg.Logger.Infof("metrics endpoint on %s%s", ln.Addr(), cfg.Path)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := srv.Shutdown(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
}

// ListenAndServe binds addr and calls Serve
func ListenAndServe(ctx context.Context, addr string, cfg EndpointConfig) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, cfg)
}
