package otel

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/lineserve/pkg/tcp"
)

// ConnMiddleware wraps each connection in a server span. A nil tracer
// uses Tracer().
func ConnMiddleware(tracer trace.Tracer) tcp.Middleware {
	if tracer == nil {
		tracer = Tracer()
	}
	return func(next tcp.ConnectionHandler) tcp.ConnectionHandler {
		return tcp.HandlerFunc(func(ctx *tcp.ConnContext) (err error) {
			spanCtx, span := tracer.Start(ctx.Context, "lineserve.conn",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithTimestamp(ctx.Accepted),
				trace.WithAttributes(
					attribute.String("lineserve.conn.id", ctx.ID),
					attribute.String("net.peer.addr", addrString(ctx.RemoteAddr)),
					attribute.String("net.host.addr", addrString(ctx.LocalAddr)),
				),
			)
			ctx.Context = spanCtx
			defer span.End()

			defer func() {
				if r := recover(); r != nil {
					span.SetStatus(codes.Error, "panic")
					span.RecordError(fmt.Errorf("panic: %v", r))
					panic(r)
				}
			}()

			err = next.HandleConn(ctx)

			span.SetAttributes(
				attribute.String("lineserve.request_line", ctx.GetString(tcp.KeyRequestLine)),
				attribute.Int("lineserve.status", ctx.GetInt(tcp.KeyStatus, 0)),
				attribute.Int("lineserve.bytes_written", ctx.GetInt(tcp.KeyBytesWritten, 0)),
			)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		})
	}
}

func addrString(a interface{ String() string }) string {
	if a == nil {
		return ""
	}
	return a.String()
}
