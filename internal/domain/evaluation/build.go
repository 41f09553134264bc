package evaluation

import (
	"github.com/okian/courtside/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Build projects g into a Context. stats and prior are optional; prior is the
// snapshot captured when the strategy's previous trigger fired.
//
// Odds convention: the stored spread is the home line. The away line is its
// negation, and the leading/trailing lines follow whichever side leads. All
// leading/trailing odds and stat diffs are nil while the game is tied.
func Build(g *model.GameSnapshot, stats *model.MatchupStats, prior *model.GameSnapshot) *Context {
	c := &Context{
		HomeScore:         g.HomeScore,
		AwayScore:         g.AwayScore,
		TotalScore:        g.Total(),
		Quarter:           g.Quarter,
		IsOvertime:        g.Quarter > model.RegulationCount,
		IsHalftime:        g.Status == model.StatusHalftime,
		Status:            g.Status,
		HomeTeam:          g.Home.Name,
		AwayTeam:          g.Away.Name,
		ScoreDifferential: g.HomeScore - g.AwayScore,
	}

	if rem, ok := g.RemainingSeconds(); ok {
		c.TimeRemainingSeconds = ptr(rem)
		c.GameSecondsElapsed = ptr(model.ElapsedSeconds(g.Quarter, rem))
	}

	leader := g.Leader()
	buildLead(c, g, leader)
	buildPeriods(c, g)
	buildOdds(c, &g.Odds, leader)
	buildStats(c, stats, leader)
	if prior != nil {
		buildPrior(c, g, prior)
	}
	return c
}

func buildLead(c *Context, g *model.GameSnapshot, leader model.Side) {
	c.CurrentLead = abs(c.ScoreDifferential)
	c.HomeLeading = leader == model.SideHome
	c.AwayLeading = leader == model.SideAway
	c.IsTied = leader == model.SideNone
	c.LeadingScore = max(g.HomeScore, g.AwayScore)
	c.TrailingScore = min(g.HomeScore, g.AwayScore)
	c.LeadingSide = leader
	c.LeadingTeamName = g.TeamName(leader)
	c.TrailingTeamName = g.TeamName(leader.Opposite())
}

func buildPeriods(c *Context, g *model.GameSnapshot) {
	for i := 0; i < len(c.Quarters) && i < len(g.Quarters); i++ {
		c.Quarters[i] = newLine(g.Quarters[i])
	}

	switch {
	case g.Halftime != nil:
		c.Halftime = newLine(*g.Halftime)
	case c.Quarters[0] != nil && c.Quarters[1] != nil:
		c.Halftime = newLine(model.Score{
			Home: c.Quarters[0].Home + c.Quarters[1].Home,
			Away: c.Quarters[0].Away + c.Quarters[1].Away,
		})
	}
	if c.Halftime == nil {
		return
	}

	c.HalftimeLead = ptr(abs(c.Halftime.Differential))
	c.FirstHalfTotal = ptr(c.Halftime.Total)
	// Second-half figures run from the break to now, overtime included.
	if g.Quarter > 2 || g.Status == model.StatusFinal {
		c.SecondHalfHome = ptr(g.HomeScore - c.Halftime.Home)
		c.SecondHalfAway = ptr(g.AwayScore - c.Halftime.Away)
		c.SecondHalfTotal = ptr(*c.SecondHalfHome + *c.SecondHalfAway)
	}
}

func buildOdds(c *Context, o *model.Odds, leader model.Side) {
	if o.HomeSpread.Valid {
		home := o.HomeSpread.Decimal
		c.HomeSpread = decPtr(home)
		c.AwaySpread = decPtr(home.Neg())
		switch leader {
		case model.SideHome:
			c.LeadingTeamSpread, c.TrailingTeamSpread = c.HomeSpread, c.AwaySpread
		case model.SideAway:
			c.LeadingTeamSpread, c.TrailingTeamSpread = c.AwaySpread, c.HomeSpread
		}
	}
	if o.HomeMoneyline.Valid {
		c.HomeMoneyline = decPtr(o.HomeMoneyline.Decimal)
	}
	if o.AwayMoneyline.Valid {
		c.AwayMoneyline = decPtr(o.AwayMoneyline.Decimal)
	}
	switch leader {
	case model.SideHome:
		c.LeadingTeamMoneyline, c.TrailingTeamMoneyline = c.HomeMoneyline, c.AwayMoneyline
	case model.SideAway:
		c.LeadingTeamMoneyline, c.TrailingTeamMoneyline = c.AwayMoneyline, c.HomeMoneyline
	}
	if o.TotalLine.Valid {
		c.TotalLine = decPtr(o.TotalLine.Decimal)
	}
}

func buildStats(c *Context, stats *model.MatchupStats, leader model.Side) {
	if stats == nil {
		return
	}
	if h := stats.Home; h != nil {
		c.HomeWinRate = ptr(h.WinRate)
		c.HomePointsPerGame = ptr(h.PointsPerGame)
	}
	if a := stats.Away; a != nil {
		c.AwayWinRate = ptr(a.WinRate)
		c.AwayPointsPerGame = ptr(a.PointsPerGame)
	}
	if stats.Home == nil || stats.Away == nil || leader == model.SideNone {
		return
	}

	lead, trail := stats.Home, stats.Away
	if leader == model.SideAway {
		lead, trail = trail, lead
	}
	c.WinRateDiff = ptr(lead.WinRate - trail.WinRate)
	c.PointsPerGameDiff = ptr(lead.PointsPerGame - trail.PointsPerGame)
	c.ExperienceDiff = ptr(lead.Experience - trail.Experience)
}

func buildPrior(c *Context, g, prior *model.GameSnapshot) {
	c.PriorTriggerLead = ptr(abs(prior.HomeScore - prior.AwayScore))

	was := prior.Leader()
	if was == model.SideNone {
		return
	}
	now := g.Leader()
	c.PriorLeaderStillLeading = ptr(now == was)
	c.PriorLeaderLead = ptr(g.LeadOf(was))
	c.LeadChangeSinceTrigger = ptr(now == was.Opposite())
}

func ptr[T any](v T) *T { return &v }

func decPtr(d decimal.Decimal) *float64 { return ptr(d.InexactFloat64()) }

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
