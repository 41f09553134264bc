package model

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Operator compares a context field with a condition operand.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpBetween            Operator = "between"
	OpContains           Operator = "contains"
)

// Condition is one comparison of a trigger.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
	Value2   Value    `json:"value2"`
}

func (c Condition) String() string {
	if c.Operator == OpBetween {
		return fmt.Sprintf("%s between %s and %s", c.Field, c.Value, c.Value2)
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Operator, c.Value)
}

// Role distinguishes the two halves of a two-stage strategy.
type Role string

const (
	RoleEntry Role = "entry"
	RoleClose Role = "close"
)

// Trigger is an AND of conditions at a position within its strategy.
type Trigger struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Order      int         `json:"order"`
	Role       Role        `json:"role"`
	Conditions []Condition `json:"conditions"`
}

// Mode selects how a strategy's triggers are scheduled.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// OddsType is the market an odds requirement watches.
type OddsType string

const (
	OddsSpread     OddsType = "spread"
	OddsMoneyline  OddsType = "moneyline"
	OddsTotalOver  OddsType = "total_over"
	OddsTotalUnder OddsType = "total_under"
)

// OddsTarget picks the side whose line is watched.
type OddsTarget string

const (
	TargetLeadingTeam  OddsTarget = "leading_team"
	TargetTrailingTeam OddsTarget = "trailing_team"
	TargetHome         OddsTarget = "home"
	TargetAway         OddsTarget = "away"
)

// OddsRequirement is the threshold a watching signal waits for.
type OddsRequirement struct {
	Type   OddsType        `json:"type"`
	Target OddsTarget      `json:"target"`
	Value  decimal.Decimal `json:"value"`
}

// RuleKind tags a gating rule variant.
type RuleKind string

const (
	RuleHalfRestriction  RuleKind = "half_restriction"
	RuleSpecificQuarter  RuleKind = "specific_quarter"
	RuleExcludeOvertime  RuleKind = "exclude_overtime"
	RuleStopAt           RuleKind = "stop_at"
	RuleMinCombinedScore RuleKind = "min_combined_score"
)

// Rule gates trigger evaluation on the current game state. Which parameters
// apply depends on Kind:
//
//	half_restriction    Half (1 or 2)
//	specific_quarter    Quarter
//	exclude_overtime    none
//	stop_at             Quarter and Clock: stop once that point is reached
//	min_combined_score  Score
type Rule struct {
	Kind    RuleKind `json:"type"`
	Half    int      `json:"half,omitempty"`
	Quarter int      `json:"quarter,omitempty"`
	Clock   string   `json:"clock,omitempty"`
	Score   int      `json:"score,omitempty"`
}

// WinKind tags a win requirement variant.
type WinKind string

const (
	WinLeadingTeam  WinKind = "leading_team_wins"
	WinTrailingTeam WinKind = "trailing_team_wins"
	WinHomeTeam     WinKind = "home_team_wins"
	WinAwayTeam     WinKind = "away_team_wins"
)

// WinRequirement constrains settlement; leading and trailing refer to the
// sides at trigger time.
type WinRequirement struct {
	Kind WinKind `json:"type"`
}

// Strategy is a named set of triggers with scheduling and betting rules.
type Strategy struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Active          bool             `json:"active"`
	Mode            Mode             `json:"mode"`
	Triggers        []Trigger        `json:"triggers"`
	Odds            *OddsRequirement `json:"oddsRequirement,omitempty"`
	Rules           []Rule           `json:"rules,omitempty"`
	WinRequirements []WinRequirement `json:"winRequirements,omitempty"`
}

// OrderedTriggers returns the triggers sorted by Order, stable on ties.
func (s *Strategy) OrderedTriggers() []Trigger {
	out := append([]Trigger(nil), s.Triggers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// HasClose reports whether the strategy is two-stage.
func (s *Strategy) HasClose() bool {
	for _, t := range s.Triggers {
		if t.Role == RoleClose {
			return true
		}
	}
	return false
}

// Validate checks structural integrity. Unsupported condition fields are
// allowed; they fail at evaluation time.
func (s *Strategy) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidStrategy)
	}
	switch s.Mode {
	case ModeSequential, ModeParallel:
	default:
		return fmt.Errorf("%w: %s: unknown mode %q", ErrInvalidStrategy, s.ID, s.Mode)
	}

	seen := make(map[string]struct{}, len(s.Triggers))
	entries := 0
	for _, t := range s.Triggers {
		if t.ID == "" {
			return fmt.Errorf("%w: %s: trigger id is required", ErrInvalidStrategy, s.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate trigger %q", ErrInvalidStrategy, s.ID, t.ID)
		}
		seen[t.ID] = struct{}{}
		switch t.Role {
		case RoleEntry:
			entries++
		case RoleClose:
		default:
			return fmt.Errorf("%w: %s: trigger %q has unknown role %q", ErrInvalidStrategy, s.ID, t.ID, t.Role)
		}
	}
	if entries == 0 {
		return fmt.Errorf("%w: %s: at least one entry trigger is required", ErrInvalidStrategy, s.ID)
	}

	if s.Odds != nil {
		switch s.Odds.Type {
		case OddsSpread, OddsMoneyline, OddsTotalOver, OddsTotalUnder:
		default:
			return fmt.Errorf("%w: %s: unknown odds type %q", ErrInvalidStrategy, s.ID, s.Odds.Type)
		}
		switch s.Odds.Target {
		case TargetLeadingTeam, TargetTrailingTeam, TargetHome, TargetAway:
		default:
			if s.Odds.Type == OddsSpread || s.Odds.Type == OddsMoneyline {
				return fmt.Errorf("%w: %s: unknown odds target %q", ErrInvalidStrategy, s.ID, s.Odds.Target)
			}
		}
	}

	for _, r := range s.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidStrategy, s.ID, err)
		}
	}
	for _, w := range s.WinRequirements {
		switch w.Kind {
		case WinLeadingTeam, WinTrailingTeam, WinHomeTeam, WinAwayTeam:
		default:
			return fmt.Errorf("%w: %s: unknown win requirement %q", ErrInvalidStrategy, s.ID, w.Kind)
		}
	}
	return nil
}

func (r Rule) validate() error {
	switch r.Kind {
	case RuleHalfRestriction:
		if r.Half != 1 && r.Half != 2 {
			return fmt.Errorf("half_restriction: half must be 1 or 2, got %d", r.Half)
		}
	case RuleSpecificQuarter:
		if r.Quarter < 1 {
			return fmt.Errorf("specific_quarter: quarter must be positive")
		}
	case RuleStopAt:
		if r.Quarter < 1 {
			return fmt.Errorf("stop_at: quarter must be positive")
		}
		if _, err := ParseClock(r.Clock); err != nil {
			return fmt.Errorf("stop_at: %w", err)
		}
	case RuleExcludeOvertime, RuleMinCombinedScore:
	default:
		return fmt.Errorf("unknown rule %q", r.Kind)
	}
	return nil
}
