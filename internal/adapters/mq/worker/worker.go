// Package worker drains the update queue, one worker per shard, so each game
// has a single writer.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/courtside/internal/adapters/mq/queue"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Processor evaluates one accepted update.
type Processor interface {
	Process(ctx context.Context, j queue.Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, j queue.Job) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, j queue.Job) error { return f(ctx, j) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context, shard int) <-chan queue.Job
	Shards() int
}

// Worker processes jobs from one shard.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the shard closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the job in hand to finish.
	Shutdown(ctx context.Context) error
}

// ShardWorker implements Worker for a single queue shard.
type ShardWorker struct {
	queue     Queue
	shard     int
	processor Processor
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewShardWorker creates a worker bound to shard.
func NewShardWorker(q Queue, shard int, p Processor, opts ...Option) *ShardWorker {
	w := &ShardWorker{
		queue:     q,
		shard:     shard,
		processor: p,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *ShardWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx, w.shard)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing update",
					logger.String("game_id", j.Update.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *ShardWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *ShardWorker) process(ctx context.Context, j queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.processor.Process(ctx, j); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("process %s: %w", j.Update.ID, err)
	}
	return nil
}

// Pool runs one ShardWorker per queue shard.
type Pool struct {
	workers []*ShardWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a pool sized to the queue's shard count.
func NewPool(q Queue, p Processor) *Pool {
	n := q.Shards()
	if n < 1 {
		n = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*ShardWorker, n),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < n; i++ {
		pool.workers[i] = NewShardWorker(q, i, p, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(n)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateWorkerCount(p.running())
		}
	}
}

func (p *Pool) running() int {
	n := 0
	for _, w := range p.workers {
		select {
		case <-w.done:
		default:
			n++
		}
	}
	return n
}

// Shutdown closes the queue so workers drain what is queued, then waits for
// them to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
