package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/courtside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMigrations(t *testing.T) {
	Convey("The embedded migrations are listed in apply order", t, func() {
		names, err := Migrations()
		So(err, ShouldBeNil)
		So(names, ShouldResemble, []string{"001_signals.sql", "002_signal_events.sql", "003_strategies.sql"})
	})
}

func TestEventRow(t *testing.T) {
	Convey("Given an event carrying a signal", t, func() {
		at := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
		ev := model.Event{
			ID: "e-1", Type: model.EventSignalCreated, StrategyID: "s-1", GameID: "g-1", At: at,
			Signal: &model.Signal{ID: "sig-1", StrategyID: "s-1", GameID: "g-1", Stage: model.StageMonitoring},
		}

		row, err := toEventRow(ev)

		Convey("Then the row is flattened and the payload keeps the signal", func() {
			So(err, ShouldBeNil)
			So(row.SignalID, ShouldEqual, "sig-1")
			So(row.Type, ShouldEqual, "signal_created")
			So(row.At, ShouldEqual, at)
			So(string(row.Payload), ShouldContainSubstring, `"stage":"monitoring"`)
		})
	})
}

func TestDecodeStrategy(t *testing.T) {
	Convey("Given a stored definition", t, func() {
		def := []byte(`{"id":"ignored","name":"comeback","active":true,"mode":"sequential",
			"triggers":[{"id":"t1","order":1,"role":"entry","conditions":[{"field":"currentLead","operator":"greater_than","value":10}]}]}`)

		Convey("When the row is inactive", func() {
			st, err := decodeStrategy("s-1", def, false)

			Convey("Then the row's id and flag win", func() {
				So(err, ShouldBeNil)
				So(st.ID, ShouldEqual, "s-1")
				So(st.Active, ShouldBeFalse)
				So(st.Triggers[0].Conditions[0].Field, ShouldEqual, model.FieldCurrentLead)
			})
		})

		Convey("When the definition is malformed", func() {
			_, err := decodeStrategy("s-1", []byte(`{`), true)
			So(err, ShouldNotBeNil)
		})
	})
}

// TestSignalStoreIntegration runs against a real database when
// COURTSIDE_TEST_POSTGRES_DSN is set.
func TestSignalStoreIntegration(t *testing.T) {
	dsn := os.Getenv("COURTSIDE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COURTSIDE_TEST_POSTGRES_DSN not set")
	}

	Convey("Given a migrated database", t, func() {
		ctx := context.Background()
		c, err := New(ctx, dsn, 2)
		So(err, ShouldBeNil)
		defer c.Close()
		So(c.RunMigrations(ctx), ShouldBeNil)

		store := NewSignalStore(c.Pool())
		gameID := "g-" + uuid.NewString()
		sig := &model.Signal{ID: uuid.NewString(), StrategyID: "s-1", GameID: gameID, Stage: model.StageWatching, CreatedAt: time.Now().UTC()}

		Convey("When an event is delivered", func() {
			err := store.Deliver(ctx, model.Event{ID: uuid.NewString(), Type: model.EventSignalCreated,
				StrategyID: "s-1", GameID: gameID, Signal: sig, At: time.Now().UTC()})
			So(err, ShouldBeNil)

			Convey("Then the signal can be read back and is open", func() {
				got, err := store.Get(ctx, "s-1", gameID)
				So(err, ShouldBeNil)
				So(got.Stage, ShouldEqual, model.StageWatching)

				open, err := store.LoadOpen(ctx)
				So(err, ShouldBeNil)
				found := false
				for _, s := range open {
					if s.GameID == gameID {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When an earlier stage is written after a later one", func() {
			now := time.Now().UTC()
			won := *sig
			won.Stage = model.StageWon
			So(store.Deliver(ctx, model.Event{ID: uuid.NewString(), Type: model.EventSignalSettled,
				StrategyID: "s-1", GameID: gameID, Signal: &won, At: now}), ShouldBeNil)
			So(store.Deliver(ctx, model.Event{ID: uuid.NewString(), Type: model.EventSignalWatching,
				StrategyID: "s-1", GameID: gameID, Signal: sig, At: now.Add(-time.Second)}), ShouldBeNil)

			Convey("Then the later stage is kept", func() {
				got, err := store.Get(ctx, "s-1", gameID)
				So(err, ShouldBeNil)
				So(got.Stage, ShouldEqual, model.StageWon)
			})
		})

		Convey("When a pair was never stored", func() {
			_, err := store.Get(ctx, "s-1", "g-missing-"+uuid.NewString())
			So(err, ShouldEqual, ErrNotFound)
		})
	})
}
