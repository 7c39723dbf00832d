package bus

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/fluxorio/lineserve/pkg/core"
)

// NATSConfig configures the NATS-backed publisher.
type NATSConfig struct {
	// URL is the NATS server URL, e.g. "nats://127.0.0.1:4222".
	URL string

	// Prefix is prepended to all subjects. Default: "lineserve".
	Prefix string

	// Name is an optional NATS connection name.
	Name string
}

// NATSPublisher publishes events as JSON on <prefix>.conn.<status>.
// Connections that ended without a response use <prefix>.conn.error.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	closed atomic.Bool
}

func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "lineserve"
	}

	nc, err := nats.Connect(url, func(o *nats.Options) error {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bus: connect %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an event with status is published on.
func (p *NATSPublisher) Subject(status int) string {
	if status == 0 {
		return p.prefix + ".conn.error"
	}
	return p.prefix + ".conn." + strconv.Itoa(status)
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := core.JSONEncode(ev)
	if err != nil {
		return fmt.Errorf("bus: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.Subject(ev.Status),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("X-Conn-ID", ev.ConnID)
	return p.nc.PublishMsg(msg)
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.nc.Flush()
	p.nc.Close()
	return err
}
