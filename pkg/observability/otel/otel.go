// Package otel wires OpenTelemetry tracing for lineserve.
package otel

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/fluxorio/lineserve"

// Config selects and configures the span exporter.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Exporter is one of "none", "stdout", "zipkin".
	Exporter string
	// Endpoint is the zipkin collector URL, e.g. http://localhost:9411/api/v2/spans.
	Endpoint string
	// SampleRate is the fraction of root spans kept (0..1).
	SampleRate float64

	// Writer receives stdout exporter output. Default: os.Stdout.
	Writer io.Writer
}

var initialized atomic.Bool

// Initialize installs a global tracer provider. The returned shutdown
// flushes pending spans. With Exporter "none" nothing is installed and
// shutdown is a no-op.
func Initialize(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	exporter, err := newExporter(cfg)
	if err != nil {
		return noop, err
	}
	if exporter == nil {
		return noop, nil
	}

	tp := NewTracerProvider(cfg, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	initialized.Store(true)

	return func(ctx context.Context) error {
		initialized.Store(false)
		return tp.Shutdown(ctx)
	}, nil
}

// IsInitialized reports whether Initialize installed a provider.
func IsInitialized() bool {
	return initialized.Load()
}

// NewTracerProvider builds a provider carrying the service resource and
// sampler from cfg.
func NewTracerProvider(cfg Config, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	name := cfg.ServiceName
	if name == "" {
		name = "lineserve"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", name)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}

	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}

	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}, opts...)
	return sdktrace.NewTracerProvider(opts...)
}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", "none":
		return nil, nil
	case "stdout":
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case "zipkin":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("otel: zipkin exporter needs an endpoint")
		}
		return zipkin.New(cfg.Endpoint)
	default:
		return nil, fmt.Errorf("otel: unknown exporter %q", cfg.Exporter)
	}
}

// Tracer returns the lineserve tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
