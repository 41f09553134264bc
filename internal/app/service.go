// Package service wires the live-state cache, debounce guard, update queue,
// lifecycle engine and sinks into the service behind the HTTP API and the
// AMQP feed.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/courtside/internal/adapters/archive"
	"github.com/okian/courtside/internal/adapters/mq/queue"
	"github.com/okian/courtside/internal/adapters/mq/worker"
	"github.com/okian/courtside/internal/adapters/repository"
	"github.com/okian/courtside/internal/adapters/sink"
	"github.com/okian/courtside/internal/domain/debounce"
	"github.com/okian/courtside/internal/domain/lifecycle"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/settlement"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize      = 10_000
	defaultStoreShards    = 16
	defaultStaleness      = 20 * time.Second
	defaultDebounceWindow = 5 * time.Second
	defaultDebounceMax    = 2
	defaultSinkTimeout    = 5 * time.Second
	defaultSweepSpec      = "*/5 * * * * *"
	defaultRefreshSpec    = "0 * * * * *"
	defaultFinalRetention = time.Hour
	archiveTimeout        = 30 * time.Second
)

// Archiver stores finished games.
type Archiver interface {
	Archive(ctx context.Context, r archive.Record) (string, error)
}

// SignalRestorer loads signals that were in flight when the process last stopped.
type SignalRestorer interface {
	LoadOpen(ctx context.Context) ([]*model.Signal, error)
}

// SweepResult reports what one sweep removed.
type SweepResult struct {
	Evicted   []string
	Retired   []string
	Debounce  int
	Forgotten int
}

// Service accepts game updates and runs them through evaluation.
type Service struct {
	mu      sync.RWMutex
	started bool
	cancel  context.CancelFunc

	// Core components
	store      *repository.GameStore
	guard      debounce.Guard
	queue      *queue.ShardedQueue
	pool       *worker.Pool
	engine     *lifecycle.Engine
	registry   *Registry
	dispatcher *sink.Dispatcher
	cron       *cron.Cron
	archives   sync.WaitGroup

	// Configuration
	workerCount    int
	queueSize      int
	storeShards    int
	staleness      time.Duration
	debounceWindow time.Duration
	debounceMax    int
	expiry         settlement.Expiry
	sinkTimeout    time.Duration
	sweepSpec      string
	refreshSpec    string
	finalRetention time.Duration

	// Collaborators
	sinks    []sink.Sink
	source   Source
	archiver Archiver
	restorer SignalRestorer

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service with default configuration. Components are built
// by Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      defaultQueueSize,
		storeShards:    defaultStoreShards,
		staleness:      defaultStaleness,
		debounceWindow: defaultDebounceWindow,
		debounceMax:    defaultDebounceMax,
		expiry:         settlement.DefaultExpiry,
		sinkTimeout:    defaultSinkTimeout,
		sweepSpec:      defaultSweepSpec,
		refreshSpec:    defaultRefreshSpec,
		finalRetention: defaultFinalRetention,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components, loads strategies, restores in-flight signals
// and starts the workers and the sweep schedule. ctx bounds the loading only;
// background work runs until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting courtside service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	registry := NewRegistry(s.source, s.logger.Named("registry"))
	if err := registry.Refresh(ctx); err != nil {
		cancel()
		return fmt.Errorf("service: start: %w", err)
	}

	s.store = repository.NewGameStore(runCtx,
		repository.WithShardCount(s.storeShards),
		repository.WithStalenessWindow(s.staleness),
	)
	s.guard = debounce.NewInMemoryGuard(
		debounce.WithWindow(s.debounceWindow),
		debounce.WithCeiling(s.debounceMax),
		debounce.WithClock(s.now),
	)
	s.engine = lifecycle.NewEngine(
		lifecycle.WithExpiry(s.expiry),
		lifecycle.WithClock(s.now),
		lifecycle.WithLogger(s.logger.Named("lifecycle")),
	)
	s.dispatcher = sink.NewDispatcher(
		sink.WithTimeout(s.sinkTimeout),
		sink.WithSinks(s.sinks...),
		sink.WithLogger(s.logger.Named("dispatcher")),
	)
	s.registry = registry

	if s.restorer != nil {
		signals, err := s.restorer.LoadOpen(ctx)
		if err != nil {
			s.logger.Warn(ctx, "could not load in-flight signals", logger.Error(err))
		} else {
			s.engine.Restore(ctx, signals, registry.Map())
		}
	}

	s.queue = queue.NewShardedQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithShards(s.workerCount),
	)
	s.pool = worker.NewPool(s.queue, worker.ProcessorFunc(s.Process))
	s.pool.Start(runCtx)

	s.cron = cron.New(cron.WithSeconds())
	if _, err := s.cron.AddFunc(s.sweepSpec, func() { s.Sweep(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("service: sweep schedule %q: %w", s.sweepSpec, err)
	}
	if _, err := s.cron.AddFunc(s.refreshSpec, func() { _ = registry.Refresh(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("service: refresh schedule %q: %w", s.refreshSpec, err)
	}
	s.cron.Start()

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "courtside service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("strategies", registry.Len()),
		logger.Int("signalsRestored", s.engine.Count()),
		logger.Any("sinks", s.dispatcher.Sinks()),
	)
	return nil
}

// Stop halts the schedule, drains the queue and waits for sink deliveries and
// archive uploads, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping courtside service...")

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		keep(ctx.Err())
	}
	keep(s.pool.Shutdown(ctx))
	keep(s.dispatcher.Wait(ctx))

	done := make(chan struct{})
	go func() {
		s.archives.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		keep(ctx.Err())
	}

	_ = s.store.Close()
	s.cancel()
	s.started = false
	s.logger.Info(context.Background(), "courtside service stopped")
	return firstErr
}

// Ingest validates u, applies the debounce guard and queues it for its game's
// worker. It returns false with a nil error when the update was debounced.
func (s *Service) Ingest(ctx context.Context, u *model.GameUpdate, source string) (bool, error) {
	metrics.RecordUpdateReceived(source)

	if u == nil {
		metrics.RecordUpdateRejected("invalid")
		return false, fmt.Errorf("%w: empty body", model.ErrInvalidUpdate)
	}
	if err := u.Validate(); err != nil {
		metrics.RecordUpdateRejected("invalid")
		return false, err
	}

	s.mu.RLock()
	started, guard, q := s.started, s.guard, s.queue
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	if !guard.Admit(ctx, u.ID) {
		metrics.RecordUpdateDebounced()
		s.logger.Debug(ctx, "update debounced", logger.String("game_id", u.ID), logger.String("source", source))
		return false, nil
	}

	if err := q.Enqueue(ctx, queue.Job{Update: u, Source: source, Received: s.now()}); err != nil {
		metrics.RecordUpdateRejected("queue")
		return false, err
	}
	return true, nil
}

// Process merges one queued update into the cache, evaluates every strategy
// against the result and dispatches the events. It is the workers' Processor.
func (s *Service) Process(ctx context.Context, j queue.Job) error {
	u := j.Update
	if u == nil {
		return fmt.Errorf("%w: empty job", model.ErrInvalidUpdate)
	}
	if !s.guard.TryEnter(ctx, u.ID) {
		metrics.RecordUpdateRejected("in_flight")
		s.logger.Debug(ctx, "game already in flight, update skipped", logger.String("game_id", u.ID))
		return nil
	}
	defer s.guard.Exit(ctx, u.ID)

	start := time.Now()

	wasFinal := false
	if prev, err := s.store.Get(ctx, u.ID); err == nil {
		wasFinal = prev.Status == model.StatusFinal
	}

	snap, err := s.store.Update(ctx, u, s.now())
	if err != nil {
		return fmt.Errorf("update cache: %w", err)
	}

	events := s.engine.Process(ctx, snap, s.registry.Strategies())
	s.dispatcher.Dispatch(ctx, events)

	if !wasFinal && snap.Status == model.StatusFinal && s.archiver != nil {
		s.archiveGame(ctx, snap)
	}

	elapsed := time.Since(start)
	metrics.RecordUpdateProcessed()
	metrics.RecordEvaluationLatency(float64(elapsed.Microseconds()) / 1000)
	if len(events) > 0 {
		s.logger.Debug(ctx, "update evaluated",
			logger.String("game_id", snap.ID),
			logger.Int("events", len(events)),
			logger.Duration("latency", elapsed),
		)
	}
	return nil
}

func (s *Service) archiveGame(ctx context.Context, g *model.GameSnapshot) {
	rec := archive.Record{Game: g, Signals: s.engine.GameSignals(g.ID), ArchivedAt: s.now()}

	s.archives.Add(1)
	go func() {
		defer s.archives.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()

		key, err := s.archiver.Archive(actx, rec)
		if err != nil {
			s.logger.Error(actx, "game archive failed", logger.String("game_id", g.ID), logger.Error(err))
			return
		}
		s.logger.Info(actx, "game archived", logger.String("game_id", g.ID), logger.String("key", key))
	}()
}

// Sweep evicts stale in-play games, drops elapsed debounce windows and retires
// final games past the retention period. Eviction keeps signal records so a
// game that resumes cannot open a second signal for the same strategy;
// retirement forgets them.
func (s *Service) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	if s.store == nil {
		return res
	}
	now := s.now()

	res.Evicted = s.store.EvictStale(ctx, now)
	res.Debounce = s.guard.Sweep(ctx)

	for _, g := range s.store.ListSorted(ctx) {
		if g.Status != model.StatusFinal || now.Sub(g.UpdatedAt) < s.finalRetention {
			continue
		}
		if s.store.Remove(ctx, g.ID) {
			res.Retired = append(res.Retired, g.ID)
			res.Forgotten += s.engine.ForgetGame(g.ID)
		}
	}

	if len(res.Evicted) > 0 || len(res.Retired) > 0 {
		s.logger.Info(ctx, "sweep complete",
			logger.Int("evicted", len(res.Evicted)),
			logger.Int("retired", len(res.Retired)),
			logger.Int("debounceWindows", res.Debounce),
			logger.Int("signalsForgotten", res.Forgotten),
		)
	}
	return res
}

// RefreshStrategies reloads strategies from the source now.
func (s *Service) RefreshStrategies(ctx context.Context) error {
	reg, err := s.components()
	if err != nil {
		return err
	}
	return reg.Refresh(ctx)
}

func (s *Service) components() (*Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.registry, nil
}

// Games returns all tracked games, closest to completion first.
func (s *Service) Games(ctx context.Context) ([]*model.GameSnapshot, error) {
	if _, err := s.components(); err != nil {
		return nil, err
	}
	return s.store.ListSorted(ctx), nil
}

// Game returns one tracked game.
func (s *Service) Game(ctx context.Context, id string) (*model.GameSnapshot, error) {
	if _, err := s.components(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Signals returns all signals that are not final.
func (s *Service) Signals(_ context.Context) ([]*model.Signal, error) {
	if _, err := s.components(); err != nil {
		return nil, err
	}
	return s.engine.Active(), nil
}

// Signal returns the signal of one (strategy, game) pair, final or not.
func (s *Service) Signal(_ context.Context, strategyID, gameID string) (*model.Signal, error) {
	if _, err := s.components(); err != nil {
		return nil, err
	}
	return s.engine.Get(strategyID, gameID)
}

// CloseSignal terminates a signal by hand and dispatches the closed event.
func (s *Service) CloseSignal(ctx context.Context, strategyID, gameID string) (*model.Signal, error) {
	if _, err := s.components(); err != nil {
		return nil, err
	}
	ev, err := s.engine.Close(ctx, strategyID, gameID)
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, []model.Event{ev})
	return ev.Signal, nil
}

// Strategies returns the loaded strategies ordered by id.
func (s *Service) Strategies(_ context.Context) ([]*model.Strategy, error) {
	reg, err := s.components()
	if err != nil {
		return nil, err
	}
	return reg.Strategies(), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["games"] = s.store.Count(ctx)
		stats["signalsActive"] = s.engine.Count()
		stats["strategies"] = s.registry.Len()
		stats["debounceWindows"] = s.guard.Size()
		stats["sinks"] = s.dispatcher.Sinks()

		metrics.UpdateGamesTracked(s.store.Count(ctx))
		metrics.UpdateSignalsActive(s.engine.Count())
	}
	return stats
}
