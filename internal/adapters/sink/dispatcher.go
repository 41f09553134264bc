// Package sink fans resolved events out to persistence and notification
// collaborators. Delivery is fire-and-forget: a failing or slow sink is logged
// and counted, never retried, and never blocks evaluation.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

const defaultTimeout = 5 * time.Second

// Sink receives events. Deliver must return once ctx is done.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev model.Event) error
}

// Func adapts a function to Sink.
type Func struct {
	ID string
	Fn func(ctx context.Context, ev model.Event) error
}

// Name implements Sink.
func (f Func) Name() string { return f.ID }

// Deliver implements Sink.
func (f Func) Deliver(ctx context.Context, ev model.Event) error { return f.Fn(ctx, ev) }

// Dispatcher delivers events to every registered sink. Each sink has its own
// lane: batches reach a sink in dispatch order, one at a time, while slow
// sinks never hold up each other or the caller.
type Dispatcher struct {
	mu    sync.RWMutex
	lanes []*lane

	timeout time.Duration
	wg      sync.WaitGroup
	log     logger.Logger
}

// lane is the pending work of one sink. At most one goroutine drains it.
type lane struct {
	sink Sink

	mu       sync.Mutex
	pending  [][]model.Event
	draining bool
}

// NewDispatcher creates a dispatcher with a 5s per-delivery timeout.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get().Named("dispatcher")
	}
	return d
}

// Register adds a sink.
func (d *Dispatcher) Register(s Sink) {
	d.mu.Lock()
	d.lanes = append(d.lanes, &lane{sink: s})
	d.mu.Unlock()
}

// Sinks returns the names of the registered sinks.
func (d *Dispatcher) Sinks() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.lanes))
	for _, l := range d.lanes {
		names = append(names, l.sink.Name())
	}
	return names
}

// Dispatch queues events on every sink's lane and returns immediately. The
// caller's cancellation does not cut deliveries short; only the per-delivery
// timeout does.
func (d *Dispatcher) Dispatch(ctx context.Context, events []model.Event) {
	if len(events) == 0 {
		return
	}

	d.mu.RLock()
	lanes := append([]*lane(nil), d.lanes...)
	d.mu.RUnlock()

	base := context.WithoutCancel(ctx)
	for _, l := range lanes {
		l.mu.Lock()
		l.pending = append(l.pending, events)
		if !l.draining {
			l.draining = true
			d.wg.Add(1)
			go d.drain(base, l)
		}
		l.mu.Unlock()
	}
}

// drain delivers queued batches until the lane is empty.
func (d *Dispatcher) drain(ctx context.Context, l *lane) {
	defer d.wg.Done()
	for {
		l.mu.Lock()
		if len(l.pending) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		events := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		l.mu.Unlock()

		for _, ev := range events {
			d.deliver(ctx, l.sink, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, ev model.Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := s.Deliver(ctx, ev)
	if err == nil {
		metrics.RecordSinkDelivery(s.Name(), float64(time.Since(start).Milliseconds()))
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	metrics.RecordSinkFailure(s.Name())
	d.log.Warn(ctx, "sink delivery failed",
		logger.String("sink", s.Name()),
		logger.String("event", string(ev.Type)),
		logger.String("game_id", ev.GameID),
		logger.Error(err))
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher wait: %w", ctx.Err())
	}
}
