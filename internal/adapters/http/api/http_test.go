package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/okian/courtside/internal/adapters/http/api"
	"github.com/okian/courtside/internal/adapters/mq/queue"
	"github.com/okian/courtside/internal/adapters/repository"
	service "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/domain/lifecycle"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDeps implements api.Dependencies.
type mockDeps struct {
	mu        sync.Mutex
	ingestErr error
	debounce  bool
	ingested  []*model.GameUpdate
	games     []*model.GameSnapshot
	signals   []*model.Signal
	closeErr  error
	readErr   error
}

func (m *mockDeps) Ingest(_ context.Context, u *model.GameUpdate, _ string) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, err
	}
	if m.ingestErr != nil {
		return false, m.ingestErr
	}
	if m.debounce {
		return false, nil
	}
	m.mu.Lock()
	m.ingested = append(m.ingested, u)
	m.mu.Unlock()
	return true, nil
}

func (m *mockDeps) Games(context.Context) ([]*model.GameSnapshot, error) {
	return m.games, m.readErr
}

func (m *mockDeps) Game(_ context.Context, id string) (*model.GameSnapshot, error) {
	for _, g := range m.games {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockDeps) Signals(context.Context) ([]*model.Signal, error) {
	return m.signals, m.readErr
}

func (m *mockDeps) Signal(_ context.Context, strategyID, gameID string) (*model.Signal, error) {
	for _, s := range m.signals {
		if s.StrategyID == strategyID && s.GameID == gameID {
			return s, nil
		}
	}
	return nil, lifecycle.ErrNotFound
}

func (m *mockDeps) CloseSignal(ctx context.Context, strategyID, gameID string) (*model.Signal, error) {
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	s, err := m.Signal(ctx, strategyID, gameID)
	if err != nil {
		return nil, err
	}
	c := s.Clone()
	c.Stage = model.StageClosed
	return c, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "games": len(m.games)}
}

func newDeps() *mockDeps {
	return &mockDeps{
		games: []*model.GameSnapshot{
			{ID: "g-1", Status: model.StatusLive, Quarter: 3, HomeScore: 70, AwayScore: 60},
			{ID: "g-2", Status: model.StatusFinal, Quarter: 4, HomeScore: 101, AwayScore: 99},
		},
		signals: []*model.Signal{
			{ID: "sig-1", StrategyID: "s-1", GameID: "g-1", Stage: model.StageWatching},
			{ID: "sig-2", StrategyID: "s-2", GameID: "g-3", Stage: model.StageMonitoring},
		},
	}
}

func newRouter(deps api.Dependencies, hub *api.Hub) *mux.Router {
	r := mux.NewRouter()
	api.NewServer(deps, hub).Register(context.Background(), r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	So(json.NewDecoder(w.Body).Decode(&out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		r := newRouter(newDeps(), nil)

		Convey("Then health serves Prometheus metrics", func() {
			w := do(r, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats returns the provider's map", func() {
			w := do(r, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("And the dashboard page is served", func() {
			w := do(r, http.MethodGet, "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/v1/stream")
		})

		Convey("And unknown paths are not found", func() {
			So(do(r, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And a wrong method is rejected", func() {
			So(do(r, http.MethodPut, "/v1/games", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("And the stream route is absent without a hub", func() {
			So(do(r, http.MethodGet, "/v1/stream", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestUpdatesHandler(t *testing.T) {
	Convey("Given the updates endpoint", t, func() {
		deps := newDeps()
		r := newRouter(deps, nil)
		body := `{"id":"g-1","homeScore":72,"awayScore":60,"quarter":3,"clock":"04:10","status":"live","odds":{"homeSpread":"-6.5"}}`

		Convey("When a valid update is posted", func() {
			w := do(r, http.MethodPost, "/v1/games/updates", body)

			Convey("Then it is accepted and ingested", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				resp := decode(w)
				So(resp["status"], ShouldEqual, "accepted")
				So(resp["gameId"], ShouldEqual, "g-1")
				So(deps.ingested, ShouldHaveLength, 1)
				So(*deps.ingested[0].HomeScore, ShouldEqual, 72)
				So(deps.ingested[0].Odds.HomeSpread.String(), ShouldEqual, "-6.5")
			})
		})

		Convey("When the update is debounced", func() {
			deps.debounce = true
			w := do(r, http.MethodPost, "/v1/games/updates", body)

			Convey("Then it is still acknowledged", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["status"], ShouldEqual, "debounced")
			})
		})

		Convey("When the body is malformed", func() {
			w := do(r, http.MethodPost, "/v1/games/updates", `{"id":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the update has no id", func() {
			w := do(r, http.MethodPost, "/v1/games/updates", `{"homeScore":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue is full", func() {
			deps.ingestErr = fmt.Errorf("enqueue: %w", queue.ErrQueueFull)
			w := do(r, http.MethodPost, "/v1/games/updates", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("When the service is not running", func() {
			deps.ingestErr = service.ErrNotStarted
			w := do(r, http.MethodPost, "/v1/games/updates", body)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestGamesHandler(t *testing.T) {
	Convey("Given the games endpoints", t, func() {
		deps := newDeps()
		r := newRouter(deps, nil)

		Convey("When listing games", func() {
			w := do(r, http.MethodGet, "/v1/games", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["count"], ShouldEqual, 2.0)
		})

		Convey("When filtering by status", func() {
			w := do(r, http.MethodGet, "/v1/games?status=final", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			resp := decode(w)
			So(resp["count"], ShouldEqual, 1.0)
			So(resp["games"].([]interface{})[0].(map[string]interface{})["id"], ShouldEqual, "g-2")
		})

		Convey("When filtering by an unknown status", func() {
			So(do(r, http.MethodGet, "/v1/games?status=paused", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching one game", func() {
			w := do(r, http.MethodGet, "/v1/games/g-1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["homeScore"], ShouldEqual, 70.0)
		})

		Convey("When fetching an unknown game", func() {
			w := do(r, http.MethodGet, "/v1/games/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the service is not running", func() {
			deps.readErr = service.ErrNotStarted
			So(do(r, http.MethodGet, "/v1/games", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestSignalsHandler(t *testing.T) {
	Convey("Given the signals endpoints", t, func() {
		deps := newDeps()
		r := newRouter(deps, nil)

		Convey("When listing signals", func() {
			w := do(r, http.MethodGet, "/v1/signals", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["count"], ShouldEqual, 2.0)
		})

		Convey("When filtering by game", func() {
			w := do(r, http.MethodGet, "/v1/signals?gameId=g-3", "")
			resp := decode(w)
			So(resp["count"], ShouldEqual, 1.0)
			So(resp["signals"].([]interface{})[0].(map[string]interface{})["id"], ShouldEqual, "sig-2")
		})

		Convey("When fetching one signal", func() {
			w := do(r, http.MethodGet, "/v1/signals/s-1/g-1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["stage"], ShouldEqual, "watching")
		})

		Convey("When closing a signal", func() {
			w := do(r, http.MethodDelete, "/v1/signals/s-1/g-1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["stage"], ShouldEqual, "closed")
		})

		Convey("When closing an unknown signal", func() {
			So(do(r, http.MethodDelete, "/v1/signals/s-9/g-1", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When closing a final signal", func() {
			deps.closeErr = lifecycle.ErrAlreadyClosed
			w := do(r, http.MethodDelete, "/v1/signals/s-1/g-1", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "conflict")
		})
	})
}

func TestHub_Stream(t *testing.T) {
	Convey("Given a running hub behind a test server", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := api.NewHub([]string{"*"}, nil)
		go hub.Run(ctx)
		srv := httptest.NewServer(newRouter(newDeps(), hub))
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		waitClients := func(n int) {
			deadline := time.Now().Add(2 * time.Second)
			for hub.Clients() != n && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
		}
		waitClients(1)
		So(hub.Clients(), ShouldEqual, 1)
		So(hub.Name(), ShouldEqual, "stream")

		read := func() map[string]interface{} {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var msg map[string]interface{}
			So(conn.ReadJSON(&msg), ShouldBeNil)
			return msg
		}

		Convey("When an event is delivered", func() {
			ev := model.Event{ID: "e-1", Type: model.EventSignalCreated, StrategyID: "s-1", GameID: "g-1", At: time.Now()}
			So(hub.Deliver(ctx, ev), ShouldBeNil)

			Convey("Then the client receives it", func() {
				msg := read()
				So(msg["type"], ShouldEqual, "signal_created")
				So(msg["gameId"], ShouldEqual, "g-1")
			})
		})

		Convey("When the client subscribes to one game", func() {
			So(conn.WriteJSON(map[string]interface{}{"action": "subscribe", "gameIds": []string{"g-2"}}), ShouldBeNil)
			time.Sleep(50 * time.Millisecond)

			So(hub.Deliver(ctx, model.Event{ID: "e-1", Type: model.EventTriggerFired, GameID: "g-1"}), ShouldBeNil)
			So(hub.Deliver(ctx, model.Event{ID: "e-2", Type: model.EventBetTaken, GameID: "g-2"}), ShouldBeNil)

			Convey("Then only that game's events arrive", func() {
				msg := read()
				So(msg["gameId"], ShouldEqual, "g-2")
				So(msg["type"], ShouldEqual, "bet_taken")
			})
		})

		Convey("When the client disconnects", func() {
			So(conn.Close(), ShouldBeNil)
			waitClients(0)
			So(hub.Clients(), ShouldEqual, 0)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given a wrapped kind", t, func() {
		cause := fmt.Errorf("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(api.NewKind("api.op", api.ErrConflict).Error(), ShouldEqual, "api.op: conflict")
		})
	})
}
