package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GameUpdate is a partial snapshot delivered by a feed. Nil fields are absent.
type GameUpdate struct {
	ID        string        `json:"id"`
	Home      *Team         `json:"home,omitempty"`
	Away      *Team         `json:"away,omitempty"`
	HomeScore *int          `json:"homeScore,omitempty"`
	AwayScore *int          `json:"awayScore,omitempty"`
	Quarter   *int          `json:"quarter,omitempty"`
	Clock     *string       `json:"clock,omitempty"`
	Quarters  []Score       `json:"quarters,omitempty"`
	Halftime  *Score        `json:"halftime,omitempty"`
	Status    *Status       `json:"status,omitempty"`
	Odds      *OddsUpdate   `json:"odds,omitempty"`
	Stats     *MatchupStats `json:"stats,omitempty"`
}

// OddsUpdate carries any subset of the market.
type OddsUpdate struct {
	HomeSpread    *decimal.Decimal `json:"homeSpread,omitempty"`
	HomeMoneyline *decimal.Decimal `json:"homeMoneyline,omitempty"`
	AwayMoneyline *decimal.Decimal `json:"awayMoneyline,omitempty"`
	TotalLine     *decimal.Decimal `json:"totalLine,omitempty"`
}

func (o *OddsUpdate) applyTo(dst *Odds) {
	set := func(dst *decimal.NullDecimal, v *decimal.Decimal) {
		if v != nil {
			*dst = decimal.NewNullDecimal(*v)
		}
	}
	set(&dst.HomeSpread, o.HomeSpread)
	set(&dst.HomeMoneyline, o.HomeMoneyline)
	set(&dst.AwayMoneyline, o.AwayMoneyline)
	set(&dst.TotalLine, o.TotalLine)
}

// Validate rejects updates the cache must not merge.
func (u *GameUpdate) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidUpdate)
	}
	if u.HomeScore != nil && *u.HomeScore < 0 {
		return fmt.Errorf("%w: homeScore must not be negative", ErrInvalidUpdate)
	}
	if u.AwayScore != nil && *u.AwayScore < 0 {
		return fmt.Errorf("%w: awayScore must not be negative", ErrInvalidUpdate)
	}
	if u.Quarter != nil && (*u.Quarter < 0 || *u.Quarter > MaxPeriod) {
		return fmt.Errorf("%w: quarter must be between 0 and %d", ErrInvalidUpdate, MaxPeriod)
	}
	if u.Clock != nil {
		if _, err := ParseClock(*u.Clock); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
		}
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, *u.Status)
	}
	return nil
}
