// Package lifecycle owns the signal state machine and the index of signals
// per (strategy, game) pair.
package lifecycle

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/settlement"
	"github.com/okian/courtside/internal/domain/strategy"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

const defaultStripes = 64

// tracked is the in-process record backing one signal. Once the signal's
// stage is final the record stays as a tombstone so the pair cannot open a
// second signal for the same game.
type tracked struct {
	sig      *model.Signal
	strategy model.Strategy
	fired    map[string]bool
	next     int
	last     *model.GameSnapshot
}

func (t *tracked) progress() strategy.Progress {
	return strategy.Progress{
		HasSignal: true,
		Stage:     t.sig.Stage,
		Fired:     t.fired,
		Next:      t.next,
		Prior:     t.last,
	}
}

// Engine advances signals as game snapshots arrive. Process, Close and Restore
// for one game serialize on that game's lock stripe; different games proceed
// in parallel.
type Engine struct {
	stripes     []sync.Mutex
	stripeCount int

	mu    sync.RWMutex
	games map[string]map[string]*tracked // game id -> strategy id -> record
	open  int

	expiry settlement.Expiry
	now    func() time.Time
	newID  func() string
	log    logger.Logger
}

// NewEngine creates an engine with the default expiry cutoff.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		stripeCount: defaultStripes,
		games:       make(map[string]map[string]*tracked),
		expiry:      settlement.DefaultExpiry,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("lifecycle")
	}
	e.stripes = make([]sync.Mutex, e.stripeCount)
	return e
}

func (e *Engine) lockGame(gameID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(gameID))
	m := &e.stripes[h.Sum32()%uint32(len(e.stripes))]
	m.Lock()
	return m.Unlock
}

// Process runs one evaluation cycle for g against strategies and returns the
// events it produced, in order. Watching signals are checked before triggers,
// so a signal that starts watching in this cycle is first checked on the next
// update.
func (e *Engine) Process(ctx context.Context, g *model.GameSnapshot, strategies []*model.Strategy) []model.Event {
	unlock := e.lockGame(g.ID)
	defer unlock()

	now := e.now()
	if g.Status == model.StatusFinal {
		return e.finish(ctx, g, now)
	}

	var events []model.Event
	for _, t := range e.gameRecords(g.ID) {
		if t.sig.Stage == model.StageWatching {
			events = append(events, e.watch(ctx, t, g, now)...)
		}
	}

	for _, s := range strategies {
		events = append(events, e.evaluate(ctx, s, g, now)...)
	}
	return events
}

// gameRecords returns the game's records sorted by strategy id for a
// deterministic event order.
func (e *Engine) gameRecords(gameID string) []*tracked {
	e.mu.RLock()
	defer e.mu.RUnlock()

	recs := e.games[gameID]
	out := make([]*tracked, 0, len(recs))
	for _, t := range recs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].sig.StrategyID < out[j].sig.StrategyID })
	return out
}

func (e *Engine) record(key model.SignalKey) *tracked {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.games[key.GameID][key.StrategyID]
}

// tryOpen inserts t unless the pair already has a record, live or tombstoned.
func (e *Engine) tryOpen(t *tracked) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	recs, ok := e.games[t.sig.GameID]
	if !ok {
		recs = make(map[string]*tracked)
		e.games[t.sig.GameID] = recs
	}
	if _, exists := recs[t.sig.StrategyID]; exists {
		return false
	}
	recs[t.sig.StrategyID] = t
	e.open++
	metrics.UpdateSignalsActive(e.open)
	return true
}

// transition applies mutate to t's signal and moves it to stage, keeping the
// open-signal count in step. Signal fields are only written under mu so that
// Active and Get can read without the game's stripe.
func (e *Engine) transition(t *tracked, stage model.Stage, mutate func(*model.Signal)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if mutate != nil {
		mutate(t.sig)
	}
	if !t.sig.Stage.Final() && stage.Final() {
		e.open--
		metrics.UpdateSignalsActive(e.open)
	}
	t.sig.Stage = stage
	metrics.RecordSignalTransition(string(stage))
}

func (e *Engine) evaluate(ctx context.Context, s *model.Strategy, g *model.GameSnapshot, now time.Time) []model.Event {
	key := model.SignalKey{StrategyID: s.ID, GameID: g.ID}
	t := e.record(key)

	p := strategy.Progress{}
	if t != nil {
		if t.sig.Stage != model.StageMonitoring && t.sig.Stage != model.StageWatching {
			return nil
		}
		p = t.progress()
	}

	d := strategy.Schedule(s, g, p)
	if d.Skipped {
		e.log.Debug(ctx, "strategy skipped",
			logger.String("strategy_id", s.ID), logger.String("game_id", g.ID), logger.String("reason", d.Reason))
		return nil
	}

	var events []model.Event
	for _, f := range d.Fires {
		switch f.Trigger.Role {
		case model.RoleEntry:
			switch {
			case t == nil:
				if t = e.openSignal(s, g, f, now); t == nil {
					continue
				}
				events = append(events,
					e.event(model.EventTriggerFired, t, g, &f, now),
					e.event(model.EventSignalCreated, t, g, &f, now))
				e.log.Info(ctx, "signal created",
					logger.String("signal_id", t.sig.ID), logger.String("strategy_id", s.ID),
					logger.String("game_id", g.ID), logger.String("stage", string(t.sig.Stage)))
			case !t.fired[f.Trigger.ID]:
				// Further entries only advance the pair.
				e.markFired(t, f, g)
				events = append(events, e.event(model.EventTriggerFired, t, g, &f, now))
			default:
				continue
			}

		case model.RoleClose:
			if t == nil || t.sig.Stage != model.StageMonitoring || t.fired[f.Trigger.ID] {
				continue
			}
			e.markFired(t, f, g)
			e.transition(t, model.StageWatching, func(sig *model.Signal) {
				sig.CloseSnapshot = g.Clone()
				sig.WatchingAt = timePtr(now)
			})
			events = append(events,
				e.event(model.EventTriggerFired, t, g, &f, now),
				e.event(model.EventSignalWatching, t, g, &f, now))
			e.log.Info(ctx, "signal watching",
				logger.String("signal_id", t.sig.ID), logger.String("game_id", g.ID))
		}
		metrics.RecordTriggerFired(string(s.Mode), string(f.Trigger.Role))
	}
	return events
}

func (e *Engine) openSignal(s *model.Strategy, g *model.GameSnapshot, f strategy.Fire, now time.Time) *tracked {
	stage := model.StageMonitoring
	if !s.HasClose() {
		stage = model.StageWatching
	}

	sig := &model.Signal{
		ID:            e.newID(),
		StrategyID:    s.ID,
		StrategyName:  s.Name,
		GameID:        g.ID,
		Stage:         stage,
		CreatedAt:     now,
		EntrySnapshot: g.Clone(),
		LeadingSide:   g.Leader(),
		FiredTriggers: []string{f.Trigger.ID},
	}
	if stage == model.StageWatching {
		sig.WatchingAt = timePtr(now)
	}
	if s.Odds != nil {
		req := *s.Odds
		sig.RequiredOdds = &req
	}

	t := &tracked{
		sig:      sig,
		strategy: cloneStrategy(s),
		fired:    map[string]bool{f.Trigger.ID: true},
		next:     f.Index + 1,
		last:     g.Clone(),
	}
	if !e.tryOpen(t) {
		return nil
	}
	metrics.RecordSignalTransition(string(stage))
	return t
}

func (e *Engine) markFired(t *tracked, f strategy.Fire, g *model.GameSnapshot) {
	e.mu.Lock()
	t.sig.FiredTriggers = append(t.sig.FiredTriggers, f.Trigger.ID)
	e.mu.Unlock()

	t.fired[f.Trigger.ID] = true
	if f.Index+1 > t.next {
		t.next = f.Index + 1
	}
	t.last = g.Clone()
}

// watch runs the watching step: expiry first, then the odds requirement.
func (e *Engine) watch(ctx context.Context, t *tracked, g *model.GameSnapshot, now time.Time) []model.Event {
	if e.expiry.Reached(g) {
		e.transition(t, model.StageExpired, func(sig *model.Signal) { sig.ExpiredAt = timePtr(now) })
		e.log.Info(ctx, "signal expired",
			logger.String("signal_id", t.sig.ID), logger.String("game_id", g.ID), logger.String("clock", g.Clock))
		return []model.Event{e.event(model.EventSignalExpired, t, g, nil, now)}
	}

	var (
		observed *decimal.Decimal
		side     model.Side
	)
	if req := t.sig.RequiredOdds; req != nil {
		line, s, ok := settlement.Check(req, g, t.sig.LeadingSide)
		if !ok {
			return nil
		}
		observed, side = &line, s
	}

	e.transition(t, model.StageBetTaken, func(sig *model.Signal) {
		sig.ObservedOdds = observed
		sig.BetSide = side
		sig.BetTakenAt = timePtr(now)
	})
	e.log.Info(ctx, "bet taken",
		logger.String("signal_id", t.sig.ID), logger.String("game_id", g.ID), logger.String("side", string(t.sig.BetSide)))
	return []model.Event{e.event(model.EventBetTaken, t, g, nil, now)}
}

// finish resolves every open signal of a final game: unplaced signals expire
// and placed ones settle.
func (e *Engine) finish(ctx context.Context, g *model.GameSnapshot, now time.Time) []model.Event {
	final := model.Score{Home: g.HomeScore, Away: g.AwayScore}

	var events []model.Event
	for _, t := range e.gameRecords(g.ID) {
		switch t.sig.Stage {
		case model.StageMonitoring, model.StageWatching:
			e.transition(t, model.StageExpired, func(sig *model.Signal) { sig.ExpiredAt = timePtr(now) })
			events = append(events, e.event(model.EventSignalExpired, t, g, nil, now))

		case model.StageBetTaken:
			result := settlement.Settle(t.sig, final, t.strategy.WinRequirements)
			e.transition(t, result.Stage(), func(sig *model.Signal) {
				sig.Result = result
				sig.FinalScore = &final
				sig.SettledAt = timePtr(now)
			})
			events = append(events, e.event(model.EventSignalSettled, t, g, nil, now))
			e.log.Info(ctx, "signal settled",
				logger.String("signal_id", t.sig.ID), logger.String("game_id", g.ID), logger.String("result", string(result)))
		}
	}
	return events
}

// Close terminates a signal by hand. Signals already final cannot be closed.
func (e *Engine) Close(ctx context.Context, strategyID, gameID string) (model.Event, error) {
	unlock := e.lockGame(gameID)
	defer unlock()

	t := e.record(model.SignalKey{StrategyID: strategyID, GameID: gameID})
	if t == nil {
		return model.Event{}, ErrNotFound
	}
	if t.sig.Stage.Final() {
		return model.Event{}, ErrAlreadyClosed
	}

	now := e.now()
	e.transition(t, model.StageClosed, func(sig *model.Signal) { sig.ClosedAt = timePtr(now) })
	e.log.Info(ctx, "signal closed", logger.String("signal_id", t.sig.ID), logger.String("game_id", gameID))
	return e.event(model.EventSignalClosed, t, nil, nil, now), nil
}

// Active returns copies of all signals that are not final, oldest first.
func (e *Engine) Active() []*model.Signal {
	e.mu.RLock()
	out := make([]*model.Signal, 0, e.open)
	for _, recs := range e.games {
		for _, t := range recs {
			if !t.sig.Stage.Final() {
				out = append(out, t.sig.Clone())
			}
		}
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a copy of the signal for a pair, final or not.
func (e *Engine) Get(strategyID, gameID string) (*model.Signal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t := e.games[gameID][strategyID]
	if t == nil {
		return nil, ErrNotFound
	}
	return t.sig.Clone(), nil
}

// GameSignals returns copies of every signal recorded for a game, final ones
// included, ordered by strategy id.
func (e *Engine) GameSignals(gameID string) []*model.Signal {
	recs := e.gameRecords(gameID)
	out := make([]*model.Signal, 0, len(recs))
	e.mu.RLock()
	for _, t := range recs {
		out = append(out, t.sig.Clone())
	}
	e.mu.RUnlock()
	return out
}

// Count returns the number of signals that are not final.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.open
}

// Restore rebuilds in-flight records from persisted signals, typically at
// start-up. Signals that are final, or whose pair is already tracked, are
// ignored. strategies supplies trigger order and win requirements; a signal
// whose strategy is unknown keeps only what the signal itself recorded.
func (e *Engine) Restore(ctx context.Context, signals []*model.Signal, strategies map[string]*model.Strategy) int {
	restored := 0
	for _, sig := range signals {
		if sig == nil || sig.Stage.Final() {
			continue
		}

		t := &tracked{sig: sig.Clone(), fired: make(map[string]bool, len(sig.FiredTriggers))}
		for _, id := range sig.FiredTriggers {
			t.fired[id] = true
		}
		if s, ok := strategies[sig.StrategyID]; ok {
			t.strategy = cloneStrategy(s)
			for i, tr := range s.OrderedTriggers() {
				if t.fired[tr.ID] && i+1 > t.next {
					t.next = i + 1
				}
			}
		}
		t.last = sig.CloseSnapshot.Clone()
		if t.last == nil {
			t.last = sig.EntrySnapshot.Clone()
		}

		unlock := e.lockGame(sig.GameID)
		ok := e.tryOpen(t)
		unlock()
		if ok {
			restored++
		}
	}
	e.log.Info(ctx, "signals restored", logger.Int("count", restored), logger.Int("offered", len(signals)))
	return restored
}

// ForgetGame drops every record of a game, tombstones included. Signals that
// are not final are dropped too; callers use this once a game is gone for good.
func (e *Engine) ForgetGame(gameID string) int {
	unlock := e.lockGame(gameID)
	defer unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	recs := e.games[gameID]
	for _, t := range recs {
		if !t.sig.Stage.Final() {
			e.open--
		}
	}
	delete(e.games, gameID)
	metrics.UpdateSignalsActive(e.open)
	return len(recs)
}

func (e *Engine) event(typ model.EventType, t *tracked, g *model.GameSnapshot, f *strategy.Fire, now time.Time) model.Event {
	ev := model.Event{
		ID:           e.newID(),
		Type:         typ,
		StrategyID:   t.sig.StrategyID,
		StrategyName: t.sig.StrategyName,
		GameID:       t.sig.GameID,
		Signal:       t.sig.Clone(),
		Game:         g.Clone(),
		Result:       t.sig.Result,
		At:           now,
	}
	if f != nil {
		tr := f.Trigger
		ev.Trigger = &tr
		ev.Matched = f.Result.Matched
		ev.Failed = f.Result.Failed
	}
	return ev
}

func cloneStrategy(s *model.Strategy) model.Strategy {
	c := *s
	c.Triggers = append([]model.Trigger(nil), s.Triggers...)
	c.Rules = append([]model.Rule(nil), s.Rules...)
	c.WinRequirements = append([]model.WinRequirement(nil), s.WinRequirements...)
	if s.Odds != nil {
		o := *s.Odds
		c.Odds = &o
	}
	return c
}

func timePtr(t time.Time) *time.Time { return &t }
