// Package stats aggregates connection outcomes emitted by the TCP server.
package stats

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/fluxorio/lineserve/pkg/bus"
	"github.com/fluxorio/lineserve/pkg/core"
	"github.com/fluxorio/lineserve/pkg/core/concurrency"
	"github.com/fluxorio/lineserve/pkg/core/failfast"
	"github.com/fluxorio/lineserve/pkg/tcp"
)

// Snapshot is the aggregated view of every outcome seen so far.
type Snapshot struct {
	Served        int64
	ByStatus      map[int]int64
	Errors        int64
	Panics        int64
	BytesWritten  int64
	TotalDuration time.Duration
}

func (s Snapshot) clone() Snapshot {
	s.ByStatus = maps.Clone(s.ByStatus)
	if s.ByStatus == nil {
		s.ByStatus = map[int]int64{}
	}
	return s
}

func (s *Snapshot) apply(o tcp.ConnOutcome) {
	if s.ByStatus == nil {
		s.ByStatus = map[int]int64{}
	}
	s.Served++
	if o.Status != 0 {
		s.ByStatus[o.Status]++
	}
	if o.Err != nil {
		s.Errors++
	}
	if o.Panicked {
		s.Panics++
	}
	s.BytesWritten += int64(o.BytesWritten)
	s.TotalDuration += o.Duration
}

// Options configures a Collector.
type Options struct {
	// Publisher receives one event per outcome. Default: bus.NopPublisher.
	Publisher bus.Publisher
	// State holds the aggregate. Default: a fresh cell.
	State  *concurrency.Cell[Snapshot]
	Logger core.Logger
}

// Collector is the single consumer of the outcome stream.
type Collector struct {
	rx     *concurrency.Receiver[tcp.ConnOutcome]
	state  *concurrency.Cell[Snapshot]
	pub    bus.Publisher
	logger core.Logger
}

func NewCollector(rx *concurrency.Receiver[tcp.ConnOutcome], opts Options) *Collector {
	failfast.NotNil(rx, "outcome receiver")
	if opts.Publisher == nil {
		opts.Publisher = bus.NopPublisher{}
	}
	if opts.State == nil {
		opts.State = concurrency.NewCell(Snapshot{ByStatus: map[int]int64{}})
	}
	if opts.Logger == nil {
		opts.Logger = core.NewDefaultLogger()
	}
	return &Collector{rx: rx, state: opts.State, pub: opts.Publisher, logger: opts.Logger}
}

// Run consumes outcomes until the stream ends or ctx is done. A poisoned
// state cell is fatal and returned as concurrency.ErrLockPoisoned.
func (c *Collector) Run(ctx context.Context) error {
	defer c.rx.Close()

	for {
		o, ok, err := c.rx.RecvContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if !ok {
			return nil
		}

		if err := c.state.Update(func(s *Snapshot) error {
			s.apply(o)
			return nil
		}); err != nil {
			c.logger.Errorf("stats state unusable: %v", err)
			return err
		}

		if err := c.pub.Publish(ctx, EventFromOutcome(o)); err != nil {
			c.logger.Warnf("publish event for conn %s: %v", o.ID, err)
		}
	}
}

// Snapshot returns a copy of the aggregate.
func (c *Collector) Snapshot() (Snapshot, error) {
	g, err := c.state.Acquire()
	if err != nil {
		return Snapshot{}, err
	}
	defer g.Release()
	return g.Value().clone(), nil
}

// EventFromOutcome converts an outcome to its bus representation.
func EventFromOutcome(o tcp.ConnOutcome) bus.Event {
	ev := bus.Event{
		ID:          uuid.NewString(),
		ConnID:      o.ID,
		RemoteAddr:  o.RemoteAddr,
		RequestLine: o.RequestLine,
		Status:      o.Status,
		Bytes:       o.BytesWritten,
		DurationMs:  float64(o.Duration) / float64(time.Millisecond),
		Panicked:    o.Panicked,
		Time:        time.Now().UTC(),
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	return ev
}
