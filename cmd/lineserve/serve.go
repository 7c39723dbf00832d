package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fluxorio/lineserve/pkg/bus"
	"github.com/fluxorio/lineserve/pkg/config"
	"github.com/fluxorio/lineserve/pkg/core"
	"github.com/fluxorio/lineserve/pkg/core/concurrency"
	"github.com/fluxorio/lineserve/pkg/observability/otel"
	"github.com/fluxorio/lineserve/pkg/observability/prometheus"
	"github.com/fluxorio/lineserve/pkg/static"
	"github.com/fluxorio/lineserve/pkg/stats"
	"github.com/fluxorio/lineserve/pkg/tcp"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger, err := core.NewLogger(core.LoggerOptions{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Prefix: "lineserve",
			})
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger, nil)
		},
	}
}

// runServe blocks until ctx is done or a component fails. onReady, when
// set, receives the bound address once connections are accepted.
func runServe(ctx context.Context, cfg *config.Config, logger core.Logger, onReady func(addr string)) error {
	handler, err := newStaticHandler(cfg, logger)
	if err != nil {
		return err
	}

	shutdownTracing, err := otel.Initialize(ctx, otel.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    os.Getenv("ENVIRONMENT"),
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warnf("tracing shutdown: %v", err)
		}
	}()

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	var accessDone chan struct{}
	if cfg.Log.Access {
		local := bus.NewLocalPublisher()
		events := local.Subscribe(cfg.Server.MaxQueue)
		accessDone = make(chan struct{})
		go func() {
			defer close(accessDone)
			logAccess(events, logger)
		}()
		publisher = bus.Multi(publisher, local)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warnf("event publisher close: %v", err)
		}
		if accessDone != nil {
			<-accessDone
		}
	}()

	// Bind before NewTCPServer: the server starts its workers on construction.
	l, err := tcp.Bind(cfg.Server.Addr, logger)
	if err != nil {
		return err
	}

	outcomesTx, outcomesRx := concurrency.NewChannel[tcp.ConnOutcome](0)
	server := tcp.NewTCPServer(&tcp.TCPServerConfig{
		Addr:            cfg.Server.Addr,
		Workers:         cfg.Server.Workers,
		MaxQueue:        cfg.Server.MaxQueue,
		MaxConns:        cfg.Server.MaxConns,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
		Outcomes:        outcomesTx,
	})

	var metrics *prometheus.Metrics
	if cfg.Metrics.Enabled {
		metrics = prometheus.GetMetrics()
		server.Use(prometheus.ConnMiddleware(metrics))
	}
	if otel.IsInitialized() {
		server.Use(otel.ConnMiddleware(nil))
	}
	server.SetHandler(handler)

	collector := stats.NewCollector(outcomesRx, stats.Options{Publisher: publisher, Logger: logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(l)
	})
	g.Go(func() error {
		// Ends when the server closes the outcome stream on Stop.
		return collector.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return server.Stop()
	})
	if metrics != nil {
		g.Go(func() error {
			return prometheus.ListenAndServe(gctx, cfg.Metrics.Addr, prometheus.EndpointConfig{
				Path:   cfg.Metrics.Path,
				Logger: logger,
			})
		})
		g.Go(func() error {
			prometheus.StartUpdater(gctx, 0, func() { prometheus.UpdateServerMetrics(metrics, server) })
			return nil
		})
	}

	if onReady != nil {
		onReady(l.Addr().String())
	}

	err = g.Wait()
	if snap, serr := collector.Snapshot(); serr == nil {
		logger.Infof("served %d connections (%d errors, %d panics)", snap.Served, snap.Errors, snap.Panics)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newStaticHandler(cfg *config.Config, logger core.Logger) (*static.Handler, error) {
	routes := make([]static.Route, 0, len(cfg.Content.Routes))
	for _, r := range cfg.Content.Routes {
		route := static.Route{RequestLine: r.RequestLine, Resource: r.Resource}
		if r.Status != 0 {
			status, ok := static.StatusFor(r.Status)
			if !ok {
				return nil, fmt.Errorf("route %q: unsupported status %d", r.RequestLine, r.Status)
			}
			route.Status = status
		}
		routes = append(routes, route)
	}

	router, err := static.NewRouter(routes,
		static.Route{Resource: cfg.Content.NotFound, Status: static.StatusNotFound},
		static.Route{Resource: cfg.Content.BadRequest, Status: static.StatusBadRequest},
	)
	if err != nil {
		return nil, err
	}
	resources, err := static.LoadResources(os.DirFS(cfg.Content.Root), router.Resources(), cfg.Content.Reload)
	if err != nil {
		return nil, err
	}
	return static.NewHandler(router, resources, static.HandlerOptions{
		Limits: static.Limits{MaxLineBytes: cfg.Content.MaxLineBytes, MaxLines: cfg.Content.MaxLines},
		Logger: logger,
	}), nil
}

func newPublisher(cfg *config.Config) (bus.Publisher, error) {
	if !cfg.Events.Enabled {
		return bus.NopPublisher{}, nil
	}
	return bus.NewNATSPublisher(bus.NATSConfig{
		URL:    cfg.Events.URL,
		Prefix: cfg.Events.Prefix,
		Name:   "lineserve",
	})
}

// logAccess writes one line per finished connection until events is closed.
func logAccess(events <-chan bus.Event, logger core.Logger) {
	for ev := range events {
		line := ev.RequestLine
		if line == "" {
			line = "-"
		}
		l := logger.With("conn_id", ev.ConnID, "remote", ev.RemoteAddr, "status", ev.Status,
			"bytes", ev.Bytes, "duration_ms", ev.DurationMs)
		if ev.Error != "" {
			l = l.With("err", ev.Error)
		}
		l.Info(line)
	}
}
