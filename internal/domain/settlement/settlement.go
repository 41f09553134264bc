// Package settlement holds the odds, expiry and settlement rules applied to
// watching and placed signals.
package settlement

import (
	"github.com/okian/courtside/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Expiry is the point after which a watching signal can no longer be placed.
type Expiry struct {
	Quarter      int
	ClockSeconds int
}

// DefaultExpiry is 2:20 remaining in the fourth quarter.
var DefaultExpiry = Expiry{Quarter: 4, ClockSeconds: 140}

// Reached reports whether g is at or past the cutoff. Any overtime period
// counts as past it. Inside the cutoff quarter the remaining time must be
// strictly below the cutoff; an unreadable clock there does not expire.
func (e Expiry) Reached(g *model.GameSnapshot) bool {
	if g.Quarter > model.RegulationCount || g.Quarter > e.Quarter {
		return true
	}
	if g.Quarter < e.Quarter {
		return false
	}
	rem, ok := g.RemainingSeconds()
	return ok && rem < e.ClockSeconds
}

// BetSide resolves the side a requirement watches. Leading and trailing follow
// the side that led when the signal triggered, falling back to the current
// leader. Totals have no side.
func BetSide(req *model.OddsRequirement, g *model.GameSnapshot, triggerLeader model.Side) model.Side {
	switch req.Type {
	case model.OddsTotalOver, model.OddsTotalUnder:
		return model.SideNone
	}
	leader := triggerLeader
	if leader == model.SideNone {
		leader = g.Leader()
	}
	switch req.Target {
	case model.TargetHome:
		return model.SideHome
	case model.TargetAway:
		return model.SideAway
	case model.TargetLeadingTeam:
		return leader
	case model.TargetTrailingTeam:
		return leader.Opposite()
	}
	return model.SideNone
}

// Observed returns the current line for req on side. The away spread is the
// negated home spread.
func Observed(req *model.OddsRequirement, o *model.Odds, side model.Side) (decimal.Decimal, bool) {
	switch req.Type {
	case model.OddsSpread:
		if !o.HomeSpread.Valid {
			return decimal.Decimal{}, false
		}
		switch side {
		case model.SideHome:
			return o.HomeSpread.Decimal, true
		case model.SideAway:
			return o.HomeSpread.Decimal.Neg(), true
		}
	case model.OddsMoneyline:
		switch side {
		case model.SideHome:
			return o.HomeMoneyline.Decimal, o.HomeMoneyline.Valid
		case model.SideAway:
			return o.AwayMoneyline.Decimal, o.AwayMoneyline.Valid
		}
	case model.OddsTotalOver, model.OddsTotalUnder:
		return o.TotalLine.Decimal, o.TotalLine.Valid
	}
	return decimal.Decimal{}, false
}

// Satisfied applies the per-market direction: spread and moneyline need the
// observed value at or above the requirement, total_over at or below it, and
// total_under at or above it.
func Satisfied(t model.OddsType, observed, required decimal.Decimal) bool {
	switch t {
	case model.OddsSpread, model.OddsMoneyline, model.OddsTotalUnder:
		return observed.GreaterThanOrEqual(required)
	case model.OddsTotalOver:
		return observed.LessThanOrEqual(required)
	}
	return false
}

// Check resolves the side, reads the current line and tests it.
func Check(req *model.OddsRequirement, g *model.GameSnapshot, triggerLeader model.Side) (decimal.Decimal, model.Side, bool) {
	side := BetSide(req, g, triggerLeader)
	observed, ok := Observed(req, &g.Odds, side)
	if !ok {
		return decimal.Decimal{}, side, false
	}
	return observed, side, Satisfied(req.Type, observed, req.Value)
}

// Settle grades a placed signal against the final score. It is a pure
// function of its inputs. A failing win requirement forces a loss; without an
// odds requirement the win requirements alone decide, and with neither the
// result is a push.
func Settle(sig *model.Signal, final model.Score, wins []model.WinRequirement) model.Result {
	for _, w := range wins {
		if !winRequirementMet(w, sig.LeadingSide, final) {
			return model.ResultLoss
		}
	}

	if sig.RequiredOdds == nil || sig.ObservedOdds == nil {
		if len(wins) > 0 {
			return model.ResultWin
		}
		return model.ResultPush
	}

	line := *sig.ObservedOdds
	switch sig.RequiredOdds.Type {
	case model.OddsSpread:
		margin := decimal.NewFromInt(int64(marginOf(sig.BetSide, final)))
		return grade(margin.Add(line).Sign())
	case model.OddsMoneyline:
		return grade(sign(marginOf(sig.BetSide, final)))
	case model.OddsTotalOver:
		return grade(decimal.NewFromInt(int64(final.Total())).Cmp(line))
	case model.OddsTotalUnder:
		return grade(line.Cmp(decimal.NewFromInt(int64(final.Total()))))
	}
	return model.ResultPush
}

func grade(sign int) model.Result {
	switch {
	case sign > 0:
		return model.ResultWin
	case sign < 0:
		return model.ResultLoss
	}
	return model.ResultPush
}

func winRequirementMet(w model.WinRequirement, triggerLeader model.Side, final model.Score) bool {
	winner := winnerOf(final)
	if winner == model.SideNone {
		return false
	}
	switch w.Kind {
	case model.WinLeadingTeam:
		return triggerLeader != model.SideNone && winner == triggerLeader
	case model.WinTrailingTeam:
		return triggerLeader != model.SideNone && winner == triggerLeader.Opposite()
	case model.WinHomeTeam:
		return winner == model.SideHome
	case model.WinAwayTeam:
		return winner == model.SideAway
	}
	return false
}

func winnerOf(s model.Score) model.Side {
	switch {
	case s.Home > s.Away:
		return model.SideHome
	case s.Away > s.Home:
		return model.SideAway
	}
	return model.SideNone
}

// marginOf returns side's final margin; an unresolved side has none.
func marginOf(side model.Side, s model.Score) int {
	switch side {
	case model.SideHome:
		return s.Home - s.Away
	case model.SideAway:
		return s.Away - s.Home
	}
	return 0
}

func sign(i int) int {
	switch {
	case i > 0:
		return 1
	case i < 0:
		return -1
	}
	return 0
}
