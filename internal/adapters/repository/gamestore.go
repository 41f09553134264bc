package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/metrics"
)

const (
	defaultShardCount      = 16
	defaultStaleness       = 20 * time.Second
	defaultMetricsInterval = 5 * time.Second
)

type shard struct {
	mu    sync.RWMutex
	games map[string]*model.GameSnapshot
}

// GameStore is a sharded in-memory Store. Each shard has its own RWMutex so
// games on different shards never contend.
type GameStore struct {
	shards                []*shard
	shardCount            int
	staleness             time.Duration
	metricsUpdateInterval time.Duration
	count                 atomic.Int64
	closed                atomic.Bool

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewGameStore constructs a store and starts its metrics updater, which stops
// on ctx cancellation or Close.
func NewGameStore(ctx context.Context, opts ...Option) *GameStore {
	s := &GameStore{
		shardCount:            defaultShardCount,
		staleness:             defaultStaleness,
		metricsUpdateInterval: defaultMetricsInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{games: make(map[string]*model.GameSnapshot)}
	}

	s.startMetricsUpdater(ctx)
	return s
}

func (s *GameStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Update implements Store.Update.
func (s *GameStore) Update(_ context.Context, u *model.GameUpdate, now time.Time) (*model.GameSnapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("repository: update: %w", err)
	}

	sh := s.shardFor(u.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	g, ok := sh.games[u.ID]
	if !ok {
		g = &model.GameSnapshot{ID: u.ID}
		sh.games[u.ID] = g
		s.count.Add(1)
	}
	g.Apply(u, now)
	return g.Clone(), nil
}

// Get implements Store.Get.
func (s *GameStore) Get(_ context.Context, id string) (*model.GameSnapshot, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	g, ok := sh.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

// Remove implements Store.Remove.
func (s *GameStore) Remove(_ context.Context, id string) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.games[id]; !ok {
		return false
	}
	delete(sh.games, id)
	s.count.Add(-1)
	return true
}

// EvictStale implements Store.EvictStale. Scheduled and final games are exempt.
func (s *GameStore) EvictStale(_ context.Context, now time.Time) []string {
	cutoff := now.Add(-s.staleness)
	var evicted []string

	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, g := range sh.games {
			if g.Status.InPlay() && g.UpdatedAt.Before(cutoff) {
				delete(sh.games, id)
				evicted = append(evicted, id)
			}
		}
		sh.mu.Unlock()
	}

	if n := len(evicted); n > 0 {
		s.count.Add(int64(-n))
		metrics.RecordGamesEvicted(n)
	}
	return evicted
}

// ListSorted implements Store.ListSorted.
func (s *GameStore) ListSorted(_ context.Context) []*model.GameSnapshot {
	out := make([]*model.GameSnapshot, 0, s.count.Load())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, g := range sh.games {
			out = append(out, g.Clone())
		}
		sh.mu.RUnlock()
	}
	SortGames(out)
	return out
}

// Count implements Store.Count.
func (s *GameStore) Count(_ context.Context) int {
	return int(s.count.Load())
}

// Close stops the metrics updater. Further updates fail with ErrClosed.
func (s *GameStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// SortGames orders games by status priority (live and halftime, then
// scheduled, then final), quarter descending, remaining time ascending and
// id ascending.
func SortGames(games []*model.GameSnapshot) {
	sort.Slice(games, func(i, j int) bool {
		a, b := games[i], games[j]
		if pa, pb := statusPriority(a.Status), statusPriority(b.Status); pa != pb {
			return pa < pb
		}
		if a.Quarter != b.Quarter {
			return a.Quarter > b.Quarter
		}
		ra, rb := remaining(a), remaining(b)
		if ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})
}

func statusPriority(s model.Status) int {
	switch s {
	case model.StatusLive, model.StatusHalftime:
		return 0
	case model.StatusScheduled:
		return 1
	case model.StatusFinal:
		return 2
	default:
		return 3
	}
}

// remaining treats an unknown clock as a full period so it sorts last.
func remaining(g *model.GameSnapshot) int {
	if r, ok := g.RemainingSeconds(); ok {
		return r
	}
	return model.PeriodLength(g.Quarter) + 1
}

// startMetricsUpdater starts a background goroutine that updates cache metrics.
func (s *GameStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateGamesTracked(s.Count(ctx))
			}
		}
	}()
}
