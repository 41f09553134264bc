package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is a signal lifecycle state.
type Stage string

const (
	StageMonitoring Stage = "monitoring"
	StageWatching   Stage = "watching"
	StageBetTaken   Stage = "bet_taken"
	StageExpired    Stage = "expired"
	StageWon        Stage = "won"
	StageLost       Stage = "lost"
	StagePushed     Stage = "pushed"
	StageClosed     Stage = "closed"
)

// Open reports whether triggers and odds are still evaluated in this stage.
func (s Stage) Open() bool { return s == StageMonitoring || s == StageWatching }

// Final reports whether no further transition can happen.
func (s Stage) Final() bool {
	switch s {
	case StageExpired, StageWon, StageLost, StagePushed, StageClosed:
		return true
	}
	return false
}

// Result is the settlement outcome of a placed bet.
type Result string

const (
	ResultNone Result = ""
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultPush Result = "push"
)

// Stage maps a result to its terminal stage.
func (r Result) Stage() Stage {
	switch r {
	case ResultWin:
		return StageWon
	case ResultLoss:
		return StageLost
	default:
		return StagePushed
	}
}

// Signal is the record of one (strategy, game) pairing that has begun triggering.
type Signal struct {
	ID            string           `json:"id"`
	StrategyID    string           `json:"strategyId"`
	StrategyName  string           `json:"strategyName"`
	GameID        string           `json:"gameId"`
	Stage         Stage            `json:"stage"`
	CreatedAt     time.Time        `json:"createdAt"`
	WatchingAt    *time.Time       `json:"watchingAt,omitempty"`
	BetTakenAt    *time.Time       `json:"betTakenAt,omitempty"`
	ExpiredAt     *time.Time       `json:"expiredAt,omitempty"`
	SettledAt     *time.Time       `json:"settledAt,omitempty"`
	ClosedAt      *time.Time       `json:"closedAt,omitempty"`
	EntrySnapshot *GameSnapshot    `json:"entrySnapshot,omitempty"`
	CloseSnapshot *GameSnapshot    `json:"closeSnapshot,omitempty"`
	LeadingSide   Side             `json:"leadingSide,omitempty"` // leader when the first trigger fired
	BetSide       Side             `json:"betSide,omitempty"`     // side whose line aligned
	RequiredOdds  *OddsRequirement `json:"requiredOdds,omitempty"`
	ObservedOdds  *decimal.Decimal `json:"observedOdds,omitempty"`
	FinalScore    *Score           `json:"finalScore,omitempty"`
	Result        Result           `json:"result,omitempty"`
	FiredTriggers []string         `json:"firedTriggers,omitempty"`
}

// Key returns the (strategy, game) key of s.
func (s *Signal) Key() SignalKey { return SignalKey{StrategyID: s.StrategyID, GameID: s.GameID} }

// Clone returns a deep copy.
func (s *Signal) Clone() *Signal {
	if s == nil {
		return nil
	}
	c := *s
	c.WatchingAt = cloneTime(s.WatchingAt)
	c.BetTakenAt = cloneTime(s.BetTakenAt)
	c.ExpiredAt = cloneTime(s.ExpiredAt)
	c.SettledAt = cloneTime(s.SettledAt)
	c.ClosedAt = cloneTime(s.ClosedAt)
	c.EntrySnapshot = s.EntrySnapshot.Clone()
	c.CloseSnapshot = s.CloseSnapshot.Clone()
	if s.RequiredOdds != nil {
		r := *s.RequiredOdds
		c.RequiredOdds = &r
	}
	if s.ObservedOdds != nil {
		o := *s.ObservedOdds
		c.ObservedOdds = &o
	}
	if s.FinalScore != nil {
		f := *s.FinalScore
		c.FinalScore = &f
	}
	c.FiredTriggers = append([]string(nil), s.FiredTriggers...)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SignalKey identifies a (strategy, game) pair.
type SignalKey struct {
	StrategyID string
	GameID     string
}

func (k SignalKey) String() string { return k.StrategyID + "/" + k.GameID }
