package strategy

import (
	"github.com/okian/courtside/internal/domain/model"
)

// CheckRules applies gating rules in order and stops at the first rejection,
// returning the rejecting rule's kind.
func CheckRules(rules []model.Rule, g *model.GameSnapshot) (bool, model.RuleKind) {
	for _, r := range rules {
		if !allows(r, g) {
			return false, r.Kind
		}
	}
	return true, ""
}

func allows(r model.Rule, g *model.GameSnapshot) bool {
	switch r.Kind {
	case model.RuleHalfRestriction:
		if r.Half == 1 {
			return g.Quarter <= 2
		}
		return g.Quarter >= 3
	case model.RuleSpecificQuarter:
		return g.Quarter == r.Quarter
	case model.RuleExcludeOvertime:
		return g.Quarter <= model.RegulationCount
	case model.RuleStopAt:
		return beforeStop(r, g)
	case model.RuleMinCombinedScore:
		return g.Total() >= r.Score
	default:
		return false
	}
}

// beforeStop is true until the game clock reaches the rule's quarter and time.
// An unreadable clock inside the stop quarter counts as reached.
func beforeStop(r model.Rule, g *model.GameSnapshot) bool {
	if g.Quarter != r.Quarter {
		return g.Quarter < r.Quarter
	}
	stop, err := model.ParseClock(r.Clock)
	if err != nil {
		return false
	}
	rem, ok := g.RemainingSeconds()
	return ok && rem > stop
}
