// Package strategy decides which triggers of a strategy fire on a game update.
package strategy

import (
	"github.com/okian/courtside/internal/domain/evaluation"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/trigger"
)

// Skip reasons reported in a Decision.
const (
	SkipInactive     = "inactive"
	SkipNotInPlay    = "not_in_play"
	SkipPastTriggers = "past_triggers"
	skipRulePref     = "rule:"
)

// Progress is the lifecycle's view of one (strategy, game) pair.
type Progress struct {
	HasSignal bool
	Stage     model.Stage
	// Fired holds trigger ids that have already fired for the pair.
	Fired map[string]bool
	// Next indexes OrderedTriggers; it is the next pending trigger once an
	// entry has fired in sequential mode.
	Next int
	// Prior is the snapshot captured when the last trigger fired.
	Prior *model.GameSnapshot
}

// Fire is one trigger that passed this cycle.
type Fire struct {
	Trigger model.Trigger
	Index   int // position in OrderedTriggers
	Result  trigger.Result
}

// Decision is the scheduler's output for one strategy and update.
type Decision struct {
	Skipped bool
	Reason  string
	Fires   []Fire
	Context *evaluation.Context
}

// Schedule evaluates s against g. Sequential strategies look at exactly one
// pending trigger; parallel strategies look at every trigger that has not yet
// fired for the pair.
func Schedule(s *model.Strategy, g *model.GameSnapshot, p Progress) Decision {
	if !s.Active {
		return Decision{Skipped: true, Reason: SkipInactive}
	}
	if !g.Status.InPlay() {
		return Decision{Skipped: true, Reason: SkipNotInPlay}
	}
	if p.HasSignal && p.Stage != model.StageMonitoring {
		return Decision{Skipped: true, Reason: SkipPastTriggers}
	}
	if ok, kind := CheckRules(s.Rules, g); !ok {
		return Decision{Skipped: true, Reason: skipRulePref + string(kind)}
	}

	ordered := s.OrderedTriggers()
	if s.Mode == model.ModeSequential {
		return sequential(ordered, g, p)
	}
	return parallel(ordered, g, p)
}

func sequential(ordered []model.Trigger, g *model.GameSnapshot, p Progress) Decision {
	idx := pendingIndex(ordered, p)
	ctx := evaluation.Build(g, g.Stats, p.Prior)
	d := Decision{Context: ctx}
	if idx < 0 {
		return d
	}

	t := ordered[idx]
	if r := trigger.EvaluateTrigger(t, ctx); r.Passed {
		d.Fires = []Fire{{Trigger: t, Index: idx, Result: r}}
	}
	return d
}

// pendingIndex returns the trigger a sequential strategy waits on, or -1.
// Without a signal only an entry trigger may be pending, so a close can never
// fire first.
func pendingIndex(ordered []model.Trigger, p Progress) int {
	if !p.HasSignal {
		for i, t := range ordered {
			if t.Role == model.RoleEntry {
				return i
			}
		}
		return -1
	}
	if p.Next >= len(ordered) {
		return -1
	}
	return p.Next
}

func parallel(ordered []model.Trigger, g *model.GameSnapshot, p Progress) Decision {
	ctx := evaluation.Build(g, g.Stats, nil)
	d := Decision{Context: ctx}
	for i, t := range ordered {
		if p.Fired[t.ID] {
			continue
		}
		if t.Role == model.RoleClose && !p.HasSignal {
			continue
		}
		if r := trigger.EvaluateTrigger(t, ctx); r.Passed {
			d.Fires = append(d.Fires, Fire{Trigger: t, Index: i, Result: r})
		}
	}
	return d
}
