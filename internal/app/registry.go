package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// Source loads strategy definitions.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]*model.Strategy, error)
}

// staticSource serves a fixed set of strategies.
type staticSource []*model.Strategy

// Static returns a Source that always loads the given strategies.
func Static(strategies ...*model.Strategy) Source { return staticSource(strategies) }

func (s staticSource) Name() string { return "static" }

func (s staticSource) Load(context.Context) ([]*model.Strategy, error) {
	return append([]*model.Strategy(nil), s...), nil
}

// Registry holds the current strategy set. A failed refresh keeps the
// previous set.
type Registry struct {
	source Source

	mu   sync.RWMutex
	list []*model.Strategy
	byID map[string]*model.Strategy

	log logger.Logger
}

// NewRegistry creates an empty registry backed by source.
func NewRegistry(source Source, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Get().Named("registry")
	}
	return &Registry{source: source, byID: map[string]*model.Strategy{}, log: log}
}

// Refresh reloads from the source. Invalid strategies are skipped and logged.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.source == nil {
		return ErrNoSource
	}
	loaded, err := r.source.Load(ctx)
	if err != nil {
		metrics.RecordStrategyLoadError()
		r.log.Error(ctx, "strategy refresh failed, keeping previous set",
			logger.String("source", r.source.Name()),
			logger.Error(err),
		)
		return fmt.Errorf("refresh strategies from %s: %w", r.source.Name(), err)
	}

	list := make([]*model.Strategy, 0, len(loaded))
	byID := make(map[string]*model.Strategy, len(loaded))
	for _, s := range loaded {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			metrics.RecordStrategyLoadError()
			r.log.Warn(ctx, "skipping invalid strategy", logger.String("strategy_id", s.ID), logger.Error(err))
			continue
		}
		if _, dup := byID[s.ID]; dup {
			r.log.Warn(ctx, "skipping duplicate strategy", logger.String("strategy_id", s.ID))
			continue
		}
		byID[s.ID] = s
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	r.mu.Lock()
	r.list = list
	r.byID = byID
	r.mu.Unlock()

	metrics.UpdateStrategiesLoaded(len(list))
	r.log.Debug(ctx, "strategies refreshed", logger.String("source", r.source.Name()), logger.Int("count", len(list)))
	return nil
}

// Strategies returns the current set ordered by id. The strategies are shared
// and must not be modified.
func (r *Registry) Strategies() []*model.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list
}

// Get returns the strategy with the given id.
func (r *Registry) Get(id string) (*model.Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Map returns a copy of the id index.
func (r *Registry) Map() map[string]*model.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*model.Strategy, len(r.byID))
	for k, v := range r.byID {
		out[k] = v
	}
	return out
}

// Len returns the number of loaded strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}
