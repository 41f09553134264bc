package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/courtside/internal/adapters/archive"
	"github.com/okian/courtside/internal/adapters/mq/queue"
	"github.com/okian/courtside/internal/adapters/repository"
	"github.com/okian/courtside/internal/adapters/sink"
	service "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/domain/lifecycle"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type collector struct {
	events chan model.Event
}

func newCollector() *collector { return &collector{events: make(chan model.Event, 64)} }

func (c *collector) Name() string { return "collector" }

func (c *collector) Deliver(_ context.Context, ev model.Event) error {
	c.events <- ev
	return nil
}

func (c *collector) next(n int) []model.EventType {
	var out []model.EventType
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-c.events:
			out = append(out, ev.Type)
		case <-timeout:
			return out
		}
	}
	return out
}

type fakeArchiver struct {
	mu      sync.Mutex
	records []archive.Record
	done    chan struct{}
}

func (a *fakeArchiver) Archive(_ context.Context, r archive.Record) (string, error) {
	a.mu.Lock()
	a.records = append(a.records, r)
	a.mu.Unlock()
	close(a.done)
	return "games/" + r.Game.ID + ".json", nil
}

type fakeRestorer struct {
	signals []*model.Signal
	err     error
}

func (r fakeRestorer) LoadOpen(context.Context) ([]*model.Signal, error) { return r.signals, r.err }

func ptr[T any](v T) *T { return &v }

func update(id string, home, away, quarter int, clock string, status model.Status) *model.GameUpdate {
	return &model.GameUpdate{
		ID:        id,
		Home:      &model.Team{ID: "h", Name: "Hawks", Abbreviation: "HAW"},
		Away:      &model.Team{ID: "a", Name: "Owls", Abbreviation: "OWL"},
		HomeScore: ptr(home),
		AwayScore: ptr(away),
		Quarter:   ptr(quarter),
		Clock:     ptr(clock),
		Status:    ptr(status),
	}
}

func blowout() *model.Strategy {
	return &model.Strategy{
		ID: "s-1", Name: "blowout", Active: true, Mode: model.ModeSequential,
		Triggers: []model.Trigger{{
			ID: "entry", Order: 1, Role: model.RoleEntry,
			Conditions: []model.Condition{{Field: model.FieldCurrentLead, Operator: model.OpGreaterThanOrEqual, Value: model.Int(10)}},
		}},
		WinRequirements: []model.WinRequirement{{Kind: model.WinLeadingTeam}},
	}
}

func start(svc *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	So(svc.Start(ctx), ShouldBeNil)
}

func stop(svc *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = svc.Stop(ctx)
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(1_000),
			service.WithShardCount(2),
			service.WithStrategySource(service.Static(blowout())),
		)
		defer stop(svc)

		Convey("When reading before start", func() {
			_, err := svc.Games(context.Background())

			Convey("Then it reports the service is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When starting the service", func() {
			start(svc)

			Convey("Then it is marked started with its strategies loaded", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["strategies"], ShouldEqual, 1)
				So(stats["games"], ShouldEqual, 0)
			})

			Convey("And stopping marks it stopped", func() {
				stop(svc)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a service without a strategy source", t, func() {
		svc := service.New()

		Convey("Then start fails", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, service.ErrNoSource), ShouldBeTrue)
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a started service with a frozen clock", t, func() {
		clk := newClock()
		events := newCollector()
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithClock(clk.Now),
			service.WithDebounce(5*time.Second, 2),
			service.WithStrategySource(service.Static(blowout())),
			service.WithSinks(events),
		)
		ctx := context.Background()
		start(svc)
		defer stop(svc)

		Convey("When an update is invalid", func() {
			ok, err := svc.Ingest(ctx, &model.GameUpdate{}, "webhook")

			Convey("Then it is rejected", func() {
				So(ok, ShouldBeFalse)
				So(errors.Is(err, model.ErrInvalidUpdate), ShouldBeTrue)
			})
		})

		Convey("When a body is missing", func() {
			_, err := svc.Ingest(ctx, nil, "webhook")
			So(errors.Is(err, model.ErrInvalidUpdate), ShouldBeTrue)
		})

		Convey("When three updates for one game arrive inside the window", func() {
			first, err1 := svc.Ingest(ctx, update("g-1", 20, 18, 2, "06:00", model.StatusLive), "webhook")
			second, err2 := svc.Ingest(ctx, update("g-1", 22, 18, 2, "05:40", model.StatusLive), "webhook")
			third, err3 := svc.Ingest(ctx, update("g-1", 24, 18, 2, "05:20", model.StatusLive), "webhook")

			Convey("Then the third is debounced without error", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(first, ShouldBeTrue)
				So(second, ShouldBeTrue)
				So(third, ShouldBeFalse)
			})

			Convey("And once the window elapses updates are admitted again", func() {
				clk.Advance(5 * time.Second)
				ok, err := svc.Ingest(ctx, update("g-1", 30, 18, 2, "05:00", model.StatusLive), "webhook")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				Convey("And the worker evaluates it into a signal", func() {
					So(events.next(2), ShouldResemble, []model.EventType{model.EventTriggerFired, model.EventSignalCreated})
					g, err := svc.Game(ctx, "g-1")
					So(err, ShouldBeNil)
					So(g.HomeScore, ShouldEqual, 30)
				})
			})
		})
	})
}

func TestService_Process(t *testing.T) {
	Convey("Given a started service with an archiver", t, func() {
		clk := newClock()
		events := newCollector()
		arch := &fakeArchiver{done: make(chan struct{})}
		svc := service.New(
			service.WithClock(clk.Now),
			service.WithStrategySource(service.Static(blowout())),
			service.WithSinks(events),
			service.WithArchiver(arch),
		)
		ctx := context.Background()
		start(svc)
		defer stop(svc)

		process := func(u *model.GameUpdate) {
			So(svc.Process(ctx, queue.Job{Update: u, Source: "test"}), ShouldBeNil)
		}

		Convey("When a game runs from entry to a final win", func() {
			process(update("g-1", 60, 48, 2, "06:00", model.StatusLive))
			So(events.next(2), ShouldResemble, []model.EventType{model.EventTriggerFired, model.EventSignalCreated})

			process(update("g-1", 62, 50, 3, "08:00", model.StatusLive))
			So(events.next(1), ShouldResemble, []model.EventType{model.EventBetTaken})

			process(update("g-1", 100, 90, 4, "00:00", model.StatusFinal))
			So(events.next(1), ShouldResemble, []model.EventType{model.EventSignalSettled})

			Convey("Then the signal is won and no longer active", func() {
				sig, err := svc.Signal(ctx, "s-1", "g-1")
				So(err, ShouldBeNil)
				So(sig.Stage, ShouldEqual, model.StageWon)
				active, err := svc.Signals(ctx)
				So(err, ShouldBeNil)
				So(active, ShouldBeEmpty)
			})

			Convey("And the game is archived once with its signal", func() {
				select {
				case <-arch.done:
				case <-time.After(2 * time.Second):
				}
				arch.mu.Lock()
				defer arch.mu.Unlock()
				So(arch.records, ShouldHaveLength, 1)
				So(arch.records[0].Game.Status, ShouldEqual, model.StatusFinal)
				So(arch.records[0].Signals, ShouldHaveLength, 1)
				So(arch.records[0].Signals[0].Result, ShouldEqual, model.ResultWin)
			})
		})

		Convey("When a signal is closed by hand", func() {
			process(update("g-2", 30, 15, 2, "03:00", model.StatusLive))
			So(events.next(2), ShouldHaveLength, 2)

			sig, err := svc.CloseSignal(ctx, "s-1", "g-2")

			Convey("Then it is closed and the event is dispatched", func() {
				So(err, ShouldBeNil)
				So(sig.Stage, ShouldEqual, model.StageClosed)
				So(events.next(1), ShouldResemble, []model.EventType{model.EventSignalClosed})
			})

			Convey("And closing again fails", func() {
				_, err := svc.CloseSignal(ctx, "s-1", "g-2")
				So(errors.Is(err, lifecycle.ErrAlreadyClosed), ShouldBeTrue)
			})
		})

		Convey("When closing an unknown signal", func() {
			_, err := svc.CloseSignal(ctx, "s-1", "nope")
			So(errors.Is(err, lifecycle.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Sweep(t *testing.T) {
	Convey("Given a started service with short windows", t, func() {
		clk := newClock()
		svc := service.New(
			service.WithClock(clk.Now),
			service.WithStalenessWindow(20*time.Second),
			service.WithFinalRetention(time.Hour),
			service.WithStrategySource(service.Static(blowout())),
		)
		ctx := context.Background()
		start(svc)
		defer stop(svc)

		So(svc.Process(ctx, queue.Job{Update: update("live", 40, 20, 3, "05:00", model.StatusLive)}), ShouldBeNil)
		So(svc.Process(ctx, queue.Job{Update: update("done", 101, 99, 4, "00:00", model.StatusFinal)}), ShouldBeNil)
		So(svc.Process(ctx, queue.Job{Update: update("later", 0, 0, 0, "12:00", model.StatusScheduled)}), ShouldBeNil)

		Convey("When the staleness window passes", func() {
			clk.Advance(21 * time.Second)
			res := svc.Sweep(ctx)

			Convey("Then only the live game is evicted and its signal survives", func() {
				So(res.Evicted, ShouldResemble, []string{"live"})
				So(res.Retired, ShouldBeEmpty)
				_, err := svc.Game(ctx, "live")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = svc.Signal(ctx, "s-1", "live")
				So(err, ShouldBeNil)
			})

			Convey("And a resumed game cannot open a second signal", func() {
				So(svc.Process(ctx, queue.Job{Update: update("live", 50, 20, 3, "03:00", model.StatusLive)}), ShouldBeNil)
				active, _ := svc.Signals(ctx)
				So(active, ShouldHaveLength, 1)
			})
		})

		Convey("When the final retention passes", func() {
			clk.Advance(time.Hour)
			res := svc.Sweep(ctx)

			Convey("Then the final game is retired", func() {
				So(res.Retired, ShouldResemble, []string{"done"})
				_, err := svc.Game(ctx, "done")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = svc.Game(ctx, "later")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_Restore(t *testing.T) {
	Convey("Given a restorer holding an in-flight signal", t, func() {
		restored := &model.Signal{
			ID: "sig-1", StrategyID: "s-1", StrategyName: "blowout", GameID: "g-9",
			Stage: model.StageBetTaken, CreatedAt: time.Now(), LeadingSide: model.SideHome,
			FiredTriggers: []string{"entry"},
		}
		svc := service.New(
			service.WithStrategySource(service.Static(blowout())),
			service.WithSignalRestorer(fakeRestorer{signals: []*model.Signal{restored}}),
			service.WithSinks(sink.Func{ID: "noop", Fn: func(context.Context, model.Event) error { return nil }}),
		)
		start(svc)
		defer stop(svc)

		Convey("Then the signal is active after start", func() {
			active, err := svc.Signals(context.Background())
			So(err, ShouldBeNil)
			So(active, ShouldHaveLength, 1)
			So(active[0].ID, ShouldEqual, "sig-1")
		})

		Convey("And it settles when the game ends", func() {
			ctx := context.Background()
			So(svc.Process(ctx, queue.Job{Update: update("g-9", 80, 100, 4, "00:00", model.StatusFinal)}), ShouldBeNil)
			sig, err := svc.Signal(ctx, "s-1", "g-9")
			So(err, ShouldBeNil)
			So(sig.Stage, ShouldEqual, model.StageLost)
		})
	})

	Convey("Given a failing restorer", t, func() {
		svc := service.New(
			service.WithStrategySource(service.Static(blowout())),
			service.WithSignalRestorer(fakeRestorer{err: errors.New("db down")}),
		)

		Convey("Then start still succeeds with no signals", func() {
			start(svc)
			defer stop(svc)
			active, _ := svc.Signals(context.Background())
			So(active, ShouldBeEmpty)
		})
	})
}
