package strategy_test

import (
	"testing"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/strategy"
	. "github.com/smartystreets/goconvey/convey"
)

func snapshot(home, away, quarter int, clock string, status model.Status) *model.GameSnapshot {
	return &model.GameSnapshot{ID: "g-1", HomeScore: home, AwayScore: away, Quarter: quarter, Clock: clock, Status: status}
}

func leadAtLeast(n int) model.Condition {
	return model.Condition{Field: model.FieldCurrentLead, Operator: model.OpGreaterThanOrEqual, Value: model.Int(n)}
}

func leadAtMost(n int) model.Condition {
	return model.Condition{Field: model.FieldCurrentLead, Operator: model.OpLessThanOrEqual, Value: model.Int(n)}
}

func twoStage(mode model.Mode) *model.Strategy {
	return &model.Strategy{
		ID: "s-1", Name: "fade", Active: true, Mode: mode,
		Triggers: []model.Trigger{
			{ID: "close", Order: 2, Role: model.RoleClose, Conditions: []model.Condition{leadAtMost(20)}},
			{ID: "entry", Order: 1, Role: model.RoleEntry, Conditions: []model.Condition{leadAtLeast(10)}},
		},
	}
}

func fired(d strategy.Decision) []string {
	ids := make([]string, 0, len(d.Fires))
	for _, f := range d.Fires {
		ids = append(ids, f.Trigger.ID)
	}
	return ids
}

func TestScheduleGating(t *testing.T) {
	Convey("Given a two-stage strategy", t, func() {
		s := twoStage(model.ModeSequential)
		g := snapshot(70, 55, 3, "05:00", model.StatusLive)

		Convey("When it is inactive", func() {
			s.Active = false
			d := strategy.Schedule(s, g, strategy.Progress{})
			So(d.Skipped, ShouldBeTrue)
			So(d.Reason, ShouldEqual, strategy.SkipInactive)
		})

		Convey("When the game is not in play", func() {
			for _, st := range []model.Status{model.StatusScheduled, model.StatusFinal} {
				g.Status = st
				d := strategy.Schedule(s, g, strategy.Progress{})
				So(d.Skipped, ShouldBeTrue)
				So(d.Reason, ShouldEqual, strategy.SkipNotInPlay)
			}
		})

		Convey("When the game is at halftime", func() {
			g.Status = model.StatusHalftime
			So(strategy.Schedule(s, g, strategy.Progress{}).Skipped, ShouldBeFalse)
		})

		Convey("When the signal is already watching", func() {
			d := strategy.Schedule(s, g, strategy.Progress{HasSignal: true, Stage: model.StageWatching})
			So(d.Skipped, ShouldBeTrue)
			So(d.Reason, ShouldEqual, strategy.SkipPastTriggers)
		})

		Convey("When a rule rejects the game state", func() {
			s.Rules = []model.Rule{
				{Kind: model.RuleMinCombinedScore, Score: 100},
				{Kind: model.RuleSpecificQuarter, Quarter: 4},
				{Kind: model.RuleExcludeOvertime},
			}
			d := strategy.Schedule(s, g, strategy.Progress{})

			Convey("Then the first failing rule is reported", func() {
				So(d.Skipped, ShouldBeTrue)
				So(d.Reason, ShouldEqual, "rule:specific_quarter")
			})
		})
	})
}

func TestCheckRules(t *testing.T) {
	Convey("Given gating rules", t, func() {
		q := func(quarter int, clock string) *model.GameSnapshot {
			return snapshot(50, 48, quarter, clock, model.StatusLive)
		}
		check := func(r model.Rule, g *model.GameSnapshot) bool {
			ok, _ := strategy.CheckRules([]model.Rule{r}, g)
			return ok
		}

		Convey("Then half restriction splits at the break", func() {
			first := model.Rule{Kind: model.RuleHalfRestriction, Half: 1}
			second := model.Rule{Kind: model.RuleHalfRestriction, Half: 2}
			So(check(first, q(2, "01:00")), ShouldBeTrue)
			So(check(first, q(3, "11:00")), ShouldBeFalse)
			So(check(second, q(3, "11:00")), ShouldBeTrue)
			So(check(second, q(5, "04:00")), ShouldBeTrue)
		})

		Convey("Then exclude overtime rejects quarter five and later", func() {
			r := model.Rule{Kind: model.RuleExcludeOvertime}
			So(check(r, q(4, "00:10")), ShouldBeTrue)
			So(check(r, q(5, "04:00")), ShouldBeFalse)
		})

		Convey("Then stop_at rejects once its quarter and clock are reached", func() {
			r := model.Rule{Kind: model.RuleStopAt, Quarter: 4, Clock: "3:00"}
			So(check(r, q(3, "00:30")), ShouldBeTrue)
			So(check(r, q(4, "03:01")), ShouldBeTrue)
			So(check(r, q(4, "03:00")), ShouldBeFalse)
			So(check(r, q(5, "04:00")), ShouldBeFalse)
			So(check(r, q(4, "")), ShouldBeFalse)
		})

		Convey("Then min combined score counts both sides", func() {
			So(check(model.Rule{Kind: model.RuleMinCombinedScore, Score: 98}, q(2, "01:00")), ShouldBeTrue)
			So(check(model.Rule{Kind: model.RuleMinCombinedScore, Score: 99}, q(2, "01:00")), ShouldBeFalse)
		})

		Convey("Then an unknown rule fails closed", func() {
			So(check(model.Rule{Kind: "moon_phase"}, q(2, "01:00")), ShouldBeFalse)
		})
	})
}

func TestScheduleSequential(t *testing.T) {
	Convey("Given a sequential strategy whose close is listed first", t, func() {
		s := twoStage(model.ModeSequential)

		Convey("When both conditions hold and no signal exists", func() {
			d := strategy.Schedule(s, snapshot(70, 55, 3, "05:00", model.StatusLive), strategy.Progress{})

			Convey("Then only the entry fires", func() {
				So(fired(d), ShouldResemble, []string{"entry"})
				So(d.Fires[0].Index, ShouldEqual, 0)
			})
		})

		Convey("When only the close conditions hold and no signal exists", func() {
			d := strategy.Schedule(s, snapshot(60, 55, 3, "05:00", model.StatusLive), strategy.Progress{})

			Convey("Then nothing fires", func() {
				So(d.Fires, ShouldBeEmpty)
			})
		})

		Convey("When the entry has fired and the signal is monitoring", func() {
			p := strategy.Progress{
				HasSignal: true, Stage: model.StageMonitoring, Next: 1,
				Fired: map[string]bool{"entry": true},
				Prior: snapshot(70, 55, 3, "05:00", model.StatusLive),
			}
			d := strategy.Schedule(s, snapshot(72, 60, 3, "03:00", model.StatusLive), p)

			Convey("Then the close is the one evaluated", func() {
				So(fired(d), ShouldResemble, []string{"close"})
			})

			Convey("Then the context carries the prior trigger state", func() {
				n, ok := d.Context.Lookup(model.FieldPriorTriggerLead).Num()
				So(ok, ShouldBeTrue)
				So(n, ShouldEqual, 15)
			})
		})

		Convey("When every trigger has been consumed", func() {
			p := strategy.Progress{HasSignal: true, Stage: model.StageMonitoring, Next: 2}
			d := strategy.Schedule(s, snapshot(72, 60, 3, "03:00", model.StatusLive), p)
			So(d.Skipped, ShouldBeFalse)
			So(d.Fires, ShouldBeEmpty)
		})
	})
}

func TestScheduleParallel(t *testing.T) {
	Convey("Given a parallel strategy with two entries", t, func() {
		s := &model.Strategy{
			ID: "s-2", Active: true, Mode: model.ModeParallel,
			Triggers: []model.Trigger{
				{ID: "big-lead", Order: 1, Role: model.RoleEntry, Conditions: []model.Condition{leadAtLeast(10)}},
				{ID: "late", Order: 2, Role: model.RoleEntry, Conditions: []model.Condition{
					{Field: model.FieldQuarter, Operator: model.OpEquals, Value: model.Int(4)},
				}},
				{ID: "close", Order: 3, Role: model.RoleClose, Conditions: []model.Condition{leadAtMost(30)}},
			},
		}
		g := snapshot(80, 65, 4, "08:00", model.StatusLive)

		Convey("When no signal exists", func() {
			d := strategy.Schedule(s, g, strategy.Progress{})

			Convey("Then every passing entry fires and the close waits", func() {
				So(fired(d), ShouldResemble, []string{"big-lead", "late"})
			})
		})

		Convey("When some triggers already fired", func() {
			d := strategy.Schedule(s, g, strategy.Progress{
				HasSignal: true, Stage: model.StageMonitoring,
				Fired: map[string]bool{"big-lead": true},
			})

			Convey("Then only new fires are reported", func() {
				So(fired(d), ShouldResemble, []string{"late", "close"})
			})
		})
	})
}
