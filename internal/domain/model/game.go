// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of a game.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusHalftime  Status = "halftime"
	StatusFinal     Status = "final"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusHalftime, StatusFinal:
		return true
	}
	return false
}

// InPlay reports whether triggers may be evaluated for a game in status s.
func (s Status) InPlay() bool { return s == StatusLive || s == StatusHalftime }

// Side names one team of a game.
type Side string

const (
	SideNone Side = ""
	SideHome Side = "home"
	SideAway Side = "away"
)

// Opposite returns the other side; SideNone stays SideNone.
func (s Side) Opposite() Side {
	switch s {
	case SideHome:
		return SideAway
	case SideAway:
		return SideHome
	}
	return SideNone
}

// Team identifies one side of a game.
type Team struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// Score is a home/away pair of points.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Total returns the combined points.
func (s Score) Total() int { return s.Home + s.Away }

// Differential returns home minus away.
func (s Score) Differential() int { return s.Home - s.Away }

// Odds holds the current market. The spread is the home team's line.
type Odds struct {
	HomeSpread    decimal.NullDecimal `json:"homeSpread"`
	HomeMoneyline decimal.NullDecimal `json:"homeMoneyline"`
	AwayMoneyline decimal.NullDecimal `json:"awayMoneyline"`
	TotalLine     decimal.NullDecimal `json:"totalLine"`
}

// TeamStats are per-team historical figures used for head-to-head diffs.
type TeamStats struct {
	WinRate       float64 `json:"winRate"`
	PointsPerGame float64 `json:"pointsPerGame"`
	Experience    float64 `json:"experience"`
}

// MatchupStats pairs optional stats for both sides.
type MatchupStats struct {
	Home *TeamStats `json:"home,omitempty"`
	Away *TeamStats `json:"away,omitempty"`
}

// GameSnapshot is the current known state of one game.
type GameSnapshot struct {
	ID        string        `json:"id"`
	Home      Team          `json:"home"`
	Away      Team          `json:"away"`
	HomeScore int           `json:"homeScore"`
	AwayScore int           `json:"awayScore"`
	Quarter   int           `json:"quarter"`
	Clock     string        `json:"clock"`
	Quarters  []Score       `json:"quarters,omitempty"` // index 0 is Q1; entries past 4 are overtime
	Halftime  *Score        `json:"halftime,omitempty"`
	Status    Status        `json:"status"`
	Odds      Odds          `json:"odds"`
	Stats     *MatchupStats `json:"stats,omitempty"`
	HomeLead  int           `json:"homeLead"`
	AwayLead  int           `json:"awayLead"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Total returns the combined score.
func (g *GameSnapshot) Total() int { return g.HomeScore + g.AwayScore }

// Leader returns the side currently ahead, SideNone when tied.
func (g *GameSnapshot) Leader() Side {
	switch {
	case g.HomeScore > g.AwayScore:
		return SideHome
	case g.AwayScore > g.HomeScore:
		return SideAway
	}
	return SideNone
}

// LeadOf returns side's signed lead (negative when behind).
func (g *GameSnapshot) LeadOf(side Side) int {
	switch side {
	case SideHome:
		return g.HomeScore - g.AwayScore
	case SideAway:
		return g.AwayScore - g.HomeScore
	}
	return 0
}

// RemainingSeconds parses Clock; a missing or malformed clock reads as ok=false.
func (g *GameSnapshot) RemainingSeconds() (int, bool) {
	s, err := ParseClock(g.Clock)
	if err != nil {
		return 0, false
	}
	return s, true
}

// TeamName returns the display name of side.
func (g *GameSnapshot) TeamName(side Side) string {
	switch side {
	case SideHome:
		return g.Home.Name
	case SideAway:
		return g.Away.Name
	}
	return ""
}

// Apply merges u into g. Fields absent from u keep their prior values.
func (g *GameSnapshot) Apply(u *GameUpdate, now time.Time) {
	if g.ID == "" {
		g.ID = u.ID
	}
	if u.Home != nil {
		g.Home = *u.Home
	}
	if u.Away != nil {
		g.Away = *u.Away
	}
	if u.HomeScore != nil {
		g.HomeScore = *u.HomeScore
	}
	if u.AwayScore != nil {
		g.AwayScore = *u.AwayScore
	}
	if u.Quarter != nil {
		g.Quarter = *u.Quarter
	}
	if u.Clock != nil {
		g.Clock = *u.Clock
	}
	if u.Quarters != nil {
		g.Quarters = append([]Score(nil), u.Quarters...)
	}
	if u.Halftime != nil {
		h := *u.Halftime
		g.Halftime = &h
	}
	if u.Status != nil {
		g.Status = *u.Status
	}
	if u.Odds != nil {
		u.Odds.applyTo(&g.Odds)
	}
	if u.Stats != nil {
		g.Stats = u.Stats.clone()
	}
	if g.Status == "" {
		g.Status = StatusScheduled
	}
	g.HomeLead = g.HomeScore - g.AwayScore
	g.AwayLead = g.AwayScore - g.HomeScore
	g.UpdatedAt = now
}

// Clone returns a deep copy safe to hand to other goroutines.
func (g *GameSnapshot) Clone() *GameSnapshot {
	if g == nil {
		return nil
	}
	c := *g
	if g.Quarters != nil {
		c.Quarters = append([]Score(nil), g.Quarters...)
	}
	if g.Halftime != nil {
		h := *g.Halftime
		c.Halftime = &h
	}
	c.Stats = g.Stats.clone()
	return &c
}

func (m *MatchupStats) clone() *MatchupStats {
	if m == nil {
		return nil
	}
	c := MatchupStats{}
	if m.Home != nil {
		h := *m.Home
		c.Home = &h
	}
	if m.Away != nil {
		a := *m.Away
		c.Away = &a
	}
	return &c
}
