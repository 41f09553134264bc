package simulator

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/courtside/internal/domain/model"
)

func TestGenerate(t *testing.T) {
	convey.Convey("Given a seeded generator", t, func() {
		timelines := Generate(5, 7)

		convey.Convey("It produces one timeline per game with distinct ids", func() {
			convey.So(timelines, convey.ShouldHaveLength, 5)
			seen := map[string]bool{}
			for _, tl := range timelines {
				convey.So(seen[tl.GameID], convey.ShouldBeFalse)
				seen[tl.GameID] = true
			}
		})

		convey.Convey("Every update is valid and belongs to its game", func() {
			for _, tl := range timelines {
				for _, u := range tl.Updates {
					convey.So(u.Validate(), convey.ShouldBeNil)
					convey.So(u.ID, convey.ShouldEqual, tl.GameID)
				}
			}
		})

		convey.Convey("Each game opens scheduled with teams and odds and ends final and decided", func() {
			for _, tl := range timelines {
				first, last := tl.Updates[0], tl.Updates[len(tl.Updates)-1]
				convey.So(*first.Status, convey.ShouldEqual, model.StatusScheduled)
				convey.So(first.Home, convey.ShouldNotBeNil)
				convey.So(first.Away, convey.ShouldNotBeNil)
				convey.So(first.Home.ID, convey.ShouldNotEqual, first.Away.ID)
				convey.So(first.Odds.HomeSpread, convey.ShouldNotBeNil)

				convey.So(*last.Status, convey.ShouldEqual, model.StatusFinal)
				convey.So(*last.HomeScore, convey.ShouldNotEqual, *last.AwayScore)
			}
		})

		convey.Convey("Scores never decrease and include a halftime update", func() {
			for _, tl := range timelines {
				home, away, halftime := 0, 0, false
				for _, u := range tl.Updates {
					if u.HomeScore != nil {
						convey.So(*u.HomeScore, convey.ShouldBeGreaterThanOrEqualTo, home)
						home = *u.HomeScore
					}
					if u.AwayScore != nil {
						convey.So(*u.AwayScore, convey.ShouldBeGreaterThanOrEqualTo, away)
						away = *u.AwayScore
					}
					if u.Status != nil && *u.Status == model.StatusHalftime {
						halftime = true
						convey.So(u.Halftime, convey.ShouldNotBeNil)
					}
				}
				convey.So(halftime, convey.ShouldBeTrue)
			}
		})

		convey.Convey("The same seed replays the same games", func() {
			again := Generate(5, 7)
			for i := range timelines {
				convey.So(again[i].GameID, convey.ShouldEqual, timelines[i].GameID)
				convey.So(len(again[i].Updates), convey.ShouldEqual, len(timelines[i].Updates))
			}
			other := Generate(5, 8)
			convey.So(other[0].GameID, convey.ShouldNotEqual, timelines[0].GameID)
		})
	})
}
