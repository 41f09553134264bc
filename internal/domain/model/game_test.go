package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/smartystreets/goconvey/convey"
)

func intp(i int) *int                      { return &i }
func strp(s string) *string                { return &s }
func statusp(s model.Status) *model.Status { return &s }

func TestGameSnapshotApply(t *testing.T) {
	convey.Convey("Given an empty snapshot", t, func() {
		now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
		g := &model.GameSnapshot{}

		convey.Convey("When a full update is applied", func() {
			spread := decimal.RequireFromString("-3.5")
			g.Apply(&model.GameUpdate{
				ID:        "g-1",
				Home:      &model.Team{Name: "Hawks"},
				Away:      &model.Team{Name: "Bulls"},
				HomeScore: intp(58),
				AwayScore: intp(54),
				Quarter:   intp(3),
				Clock:     strp("06:30"),
				Status:    statusp(model.StatusLive),
				Odds:      &model.OddsUpdate{HomeSpread: &spread},
			}, now)

			convey.Convey("Then leads and timestamp are derived", func() {
				convey.So(g.ID, convey.ShouldEqual, "g-1")
				convey.So(g.HomeLead, convey.ShouldEqual, 4)
				convey.So(g.AwayLead, convey.ShouldEqual, -4)
				convey.So(g.Leader(), convey.ShouldEqual, model.SideHome)
				convey.So(g.UpdatedAt, convey.ShouldEqual, now)
				convey.So(g.Odds.HomeSpread.Valid, convey.ShouldBeTrue)
			})

			convey.Convey("And a partial update keeps absent fields", func() {
				later := now.Add(time.Second)
				g.Apply(&model.GameUpdate{ID: "g-1", AwayScore: intp(60)}, later)

				convey.So(g.HomeScore, convey.ShouldEqual, 58)
				convey.So(g.AwayScore, convey.ShouldEqual, 60)
				convey.So(g.Clock, convey.ShouldEqual, "06:30")
				convey.So(g.Home.Name, convey.ShouldEqual, "Hawks")
				convey.So(g.Odds.HomeSpread.Decimal.String(), convey.ShouldEqual, "-3.5")
				convey.So(g.AwayLead, convey.ShouldEqual, 2)
				convey.So(g.Leader(), convey.ShouldEqual, model.SideAway)
			})
		})

		convey.Convey("When the snapshot is cloned", func() {
			g.Apply(&model.GameUpdate{ID: "g-2", Quarters: []model.Score{{Home: 20, Away: 18}}}, now)
			c := g.Clone()
			c.Quarters[0].Home = 99

			convey.So(g.Quarters[0].Home, convey.ShouldEqual, 20)
			convey.So(c.Status, convey.ShouldEqual, model.StatusScheduled)
		})
	})
}

func TestGameUpdateValidate(t *testing.T) {
	convey.Convey("Given inbound updates", t, func() {
		convey.Convey("When the id is missing", func() {
			err := (&model.GameUpdate{}).Validate()
			convey.So(errors.Is(err, model.ErrInvalidUpdate), convey.ShouldBeTrue)
		})

		convey.Convey("When the clock is malformed", func() {
			err := (&model.GameUpdate{ID: "g", Clock: strp("7 min")}).Validate()
			convey.So(errors.Is(err, model.ErrInvalidUpdate), convey.ShouldBeTrue)
		})

		convey.Convey("When the quarter is out of range", func() {
			err := (&model.GameUpdate{ID: "g", Quarter: intp(1 << 40), Clock: strp("1:00")}).Validate()
			convey.So(errors.Is(err, model.ErrInvalidUpdate), convey.ShouldBeTrue)
			err = (&model.GameUpdate{ID: "g", Quarter: intp(model.MaxPeriod + 1)}).Validate()
			convey.So(errors.Is(err, model.ErrInvalidUpdate), convey.ShouldBeTrue)
			convey.So((&model.GameUpdate{ID: "g", Quarter: intp(model.MaxPeriod)}).Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the status is unknown", func() {
			err := (&model.GameUpdate{ID: "g", Status: statusp("paused")}).Validate()
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When decoding the webhook body", func() {
			var u model.GameUpdate
			err := json.Unmarshal([]byte(`{"id":"g","homeScore":10,"odds":{"totalLine":"221.5"}}`), &u)

			convey.So(err, convey.ShouldBeNil)
			convey.So(u.Validate(), convey.ShouldBeNil)
			convey.So(*u.HomeScore, convey.ShouldEqual, 10)
			convey.So(u.AwayScore, convey.ShouldBeNil)
			convey.So(u.Odds.TotalLine.String(), convey.ShouldEqual, "221.5")
		})
	})
}

func TestClock(t *testing.T) {
	convey.Convey("Given game clocks", t, func() {
		s, err := model.ParseClock("2:20")
		convey.So(err, convey.ShouldBeNil)
		convey.So(s, convey.ShouldEqual, 140)

		_, err = model.ParseClock("12:60")
		convey.So(errors.Is(err, model.ErrInvalidClock), convey.ShouldBeTrue)

		convey.So(model.FormatClock(135), convey.ShouldEqual, "02:15")
		convey.So(model.ElapsedSeconds(3, 6*60), convey.ShouldEqual, 2*720+360)
		convey.So(model.ElapsedSeconds(5, 300), convey.ShouldEqual, 4*720)
		convey.So(model.ElapsedSeconds(0, 0), convey.ShouldEqual, 0)
		convey.So(model.ElapsedSeconds(7, 60), convey.ShouldEqual, 4*720+2*300+240)
		convey.So(model.ElapsedSeconds(1<<40, 0), convey.ShouldEqual, 4*720+((1<<40)-5)*300+300)
	})
}
