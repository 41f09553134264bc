// Package evaluation projects a game snapshot into the named fields that
// strategy conditions are written against.
package evaluation

import "github.com/okian/courtside/internal/domain/model"

// Line is one home/away pair with its derived figures.
type Line struct {
	Home         int
	Away         int
	Total        int
	Differential int // home minus away
}

func newLine(s model.Score) *Line {
	return &Line{Home: s.Home, Away: s.Away, Total: s.Total(), Differential: s.Differential()}
}

// Context is an immutable projection of one snapshot. Pointer fields are nil
// when the underlying data is unavailable.
type Context struct {
	HomeScore            int
	AwayScore            int
	TotalScore           int
	Quarter              int
	TimeRemainingSeconds *int
	GameSecondsElapsed   *int
	IsOvertime           bool
	IsHalftime           bool
	Status               model.Status
	HomeTeam             string
	AwayTeam             string

	CurrentLead       int // absolute
	ScoreDifferential int // home minus away
	HomeLeading       bool
	AwayLeading       bool
	IsTied            bool
	LeadingScore      int
	TrailingScore     int
	LeadingSide       model.Side
	LeadingTeamName   string
	TrailingTeamName  string

	Quarters [model.RegulationCount]*Line

	Halftime        *Line
	HalftimeLead    *int // absolute
	FirstHalfTotal  *int
	SecondHalfTotal *int
	SecondHalfHome  *int
	SecondHalfAway  *int

	HomeSpread            *float64
	AwaySpread            *float64
	HomeMoneyline         *float64
	AwayMoneyline         *float64
	TotalLine             *float64
	LeadingTeamSpread     *float64
	TrailingTeamSpread    *float64
	LeadingTeamMoneyline  *float64
	TrailingTeamMoneyline *float64

	HomeWinRate       *float64
	AwayWinRate       *float64
	HomePointsPerGame *float64
	AwayPointsPerGame *float64
	WinRateDiff       *float64 // leading minus trailing
	PointsPerGameDiff *float64
	ExperienceDiff    *float64

	PriorLeaderStillLeading *bool
	PriorLeaderLead         *int
	PriorTriggerLead        *int
	LeadChangeSinceTrigger  *bool
}

// Lookup returns the value of f; unsupported fields are null.
func (c *Context) Lookup(f model.Field) model.Value {
	if !f.Supported() {
		return model.Null()
	}
	return accessors[f](c)
}

type accessor func(*Context) model.Value

func quarterAccessor(q int, pick func(*Line) int) accessor {
	return func(c *Context) model.Value {
		l := c.Quarters[q]
		if l == nil {
			return model.Null()
		}
		return model.Int(pick(l))
	}
}

func halftimeAccessor(pick func(*Line) int) accessor {
	return func(c *Context) model.Value {
		if c.Halftime == nil {
			return model.Null()
		}
		return model.Int(pick(c.Halftime))
	}
}

func lineHome(l *Line) int  { return l.Home }
func lineAway(l *Line) int  { return l.Away }
func lineTotal(l *Line) int { return l.Total }
func lineDiff(l *Line) int  { return l.Differential }

var accessors = [model.FieldCount]accessor{
	model.FieldUnsupported:          func(*Context) model.Value { return model.Null() },
	model.FieldHomeScore:            func(c *Context) model.Value { return model.Int(c.HomeScore) },
	model.FieldAwayScore:            func(c *Context) model.Value { return model.Int(c.AwayScore) },
	model.FieldTotalScore:           func(c *Context) model.Value { return model.Int(c.TotalScore) },
	model.FieldQuarter:              func(c *Context) model.Value { return model.Int(c.Quarter) },
	model.FieldTimeRemainingSeconds: func(c *Context) model.Value { return model.OptInt(c.TimeRemainingSeconds) },
	model.FieldGameSecondsElapsed:   func(c *Context) model.Value { return model.OptInt(c.GameSecondsElapsed) },
	model.FieldIsOvertime:           func(c *Context) model.Value { return model.Bool(c.IsOvertime) },
	model.FieldIsHalftime:           func(c *Context) model.Value { return model.Bool(c.IsHalftime) },
	model.FieldStatus:               func(c *Context) model.Value { return model.OptString(string(c.Status)) },
	model.FieldHomeTeam:             func(c *Context) model.Value { return model.OptString(c.HomeTeam) },
	model.FieldAwayTeam:             func(c *Context) model.Value { return model.OptString(c.AwayTeam) },

	model.FieldCurrentLead:       func(c *Context) model.Value { return model.Int(c.CurrentLead) },
	model.FieldScoreDifferential: func(c *Context) model.Value { return model.Int(c.ScoreDifferential) },
	model.FieldHomeLeading:       func(c *Context) model.Value { return model.Bool(c.HomeLeading) },
	model.FieldAwayLeading:       func(c *Context) model.Value { return model.Bool(c.AwayLeading) },
	model.FieldIsTied:            func(c *Context) model.Value { return model.Bool(c.IsTied) },
	model.FieldLeadingScore:      func(c *Context) model.Value { return model.Int(c.LeadingScore) },
	model.FieldTrailingScore:     func(c *Context) model.Value { return model.Int(c.TrailingScore) },
	model.FieldLeadingSide:       func(c *Context) model.Value { return model.OptString(string(c.LeadingSide)) },
	model.FieldLeadingTeamName:   func(c *Context) model.Value { return model.OptString(c.LeadingTeamName) },
	model.FieldTrailingTeamName:  func(c *Context) model.Value { return model.OptString(c.TrailingTeamName) },

	model.FieldQ1Home:         quarterAccessor(0, lineHome),
	model.FieldQ1Away:         quarterAccessor(0, lineAway),
	model.FieldQ1Total:        quarterAccessor(0, lineTotal),
	model.FieldQ1Differential: quarterAccessor(0, lineDiff),
	model.FieldQ2Home:         quarterAccessor(1, lineHome),
	model.FieldQ2Away:         quarterAccessor(1, lineAway),
	model.FieldQ2Total:        quarterAccessor(1, lineTotal),
	model.FieldQ2Differential: quarterAccessor(1, lineDiff),
	model.FieldQ3Home:         quarterAccessor(2, lineHome),
	model.FieldQ3Away:         quarterAccessor(2, lineAway),
	model.FieldQ3Total:        quarterAccessor(2, lineTotal),
	model.FieldQ3Differential: quarterAccessor(2, lineDiff),
	model.FieldQ4Home:         quarterAccessor(3, lineHome),
	model.FieldQ4Away:         quarterAccessor(3, lineAway),
	model.FieldQ4Total:        quarterAccessor(3, lineTotal),
	model.FieldQ4Differential: quarterAccessor(3, lineDiff),

	model.FieldHalftimeHome:         halftimeAccessor(lineHome),
	model.FieldHalftimeAway:         halftimeAccessor(lineAway),
	model.FieldHalftimeTotal:        halftimeAccessor(lineTotal),
	model.FieldHalftimeDifferential: halftimeAccessor(lineDiff),
	model.FieldHalftimeLead:         func(c *Context) model.Value { return model.OptInt(c.HalftimeLead) },
	model.FieldFirstHalfTotal:       func(c *Context) model.Value { return model.OptInt(c.FirstHalfTotal) },
	model.FieldSecondHalfTotal:      func(c *Context) model.Value { return model.OptInt(c.SecondHalfTotal) },
	model.FieldSecondHalfHome:       func(c *Context) model.Value { return model.OptInt(c.SecondHalfHome) },
	model.FieldSecondHalfAway:       func(c *Context) model.Value { return model.OptInt(c.SecondHalfAway) },

	model.FieldHomeSpread:            func(c *Context) model.Value { return model.OptNumber(c.HomeSpread) },
	model.FieldAwaySpread:            func(c *Context) model.Value { return model.OptNumber(c.AwaySpread) },
	model.FieldHomeMoneyline:         func(c *Context) model.Value { return model.OptNumber(c.HomeMoneyline) },
	model.FieldAwayMoneyline:         func(c *Context) model.Value { return model.OptNumber(c.AwayMoneyline) },
	model.FieldTotalLine:             func(c *Context) model.Value { return model.OptNumber(c.TotalLine) },
	model.FieldLeadingTeamSpread:     func(c *Context) model.Value { return model.OptNumber(c.LeadingTeamSpread) },
	model.FieldTrailingTeamSpread:    func(c *Context) model.Value { return model.OptNumber(c.TrailingTeamSpread) },
	model.FieldLeadingTeamMoneyline:  func(c *Context) model.Value { return model.OptNumber(c.LeadingTeamMoneyline) },
	model.FieldTrailingTeamMoneyline: func(c *Context) model.Value { return model.OptNumber(c.TrailingTeamMoneyline) },

	model.FieldHomeWinRate:       func(c *Context) model.Value { return model.OptNumber(c.HomeWinRate) },
	model.FieldAwayWinRate:       func(c *Context) model.Value { return model.OptNumber(c.AwayWinRate) },
	model.FieldHomePointsPerGame: func(c *Context) model.Value { return model.OptNumber(c.HomePointsPerGame) },
	model.FieldAwayPointsPerGame: func(c *Context) model.Value { return model.OptNumber(c.AwayPointsPerGame) },
	model.FieldWinRateDiff:       func(c *Context) model.Value { return model.OptNumber(c.WinRateDiff) },
	model.FieldPointsPerGameDiff: func(c *Context) model.Value { return model.OptNumber(c.PointsPerGameDiff) },
	model.FieldExperienceDiff:    func(c *Context) model.Value { return model.OptNumber(c.ExperienceDiff) },

	model.FieldPriorLeaderStillLeading: func(c *Context) model.Value { return model.OptBool(c.PriorLeaderStillLeading) },
	model.FieldPriorLeaderLead:         func(c *Context) model.Value { return model.OptInt(c.PriorLeaderLead) },
	model.FieldPriorTriggerLead:        func(c *Context) model.Value { return model.OptInt(c.PriorTriggerLead) },
	model.FieldLeadChangeSinceTrigger:  func(c *Context) model.Value { return model.OptBool(c.LeadChangeSinceTrigger) },
}
