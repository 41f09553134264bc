// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/courtside/internal/app"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UpdateDependencies
	GameDependencies
	SignalDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	updatesHandler   *UpdatesHandler
	gamesHandler     *GamesHandler
	signalsHandler   *SignalsHandler
	dashboardHandler *dashboardHandler
	hub              *Hub
}

// NewServer creates a new API server with all handlers. hub may be nil, in
// which case the stream route is not registered.
func NewServer(deps Dependencies, hub *Hub) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		updatesHandler:   NewUpdatesHandler(deps),
		gamesHandler:     NewGamesHandler(deps),
		signalsHandler:   NewSignalsHandler(deps),
		dashboardHandler: newDashboardHandler(),
		hub:              hub,
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}

	r.HandleFunc("/healthz", s.healthHandler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(routeMetrics)
	v1.HandleFunc("/games/updates", s.updatesHandler.HandlePostUpdate).Methods(http.MethodPost)
	v1.HandleFunc("/games", s.gamesHandler.HandleListGames).Methods(http.MethodGet)
	v1.HandleFunc("/games/{id}", s.gamesHandler.HandleGetGame).Methods(http.MethodGet)
	v1.HandleFunc("/signals", s.signalsHandler.HandleListSignals).Methods(http.MethodGet)
	v1.HandleFunc("/signals/{strategyID}/{gameID}", s.signalsHandler.HandleGetSignal).Methods(http.MethodGet)
	v1.HandleFunc("/signals/{strategyID}/{gameID}", s.signalsHandler.HandleCloseSignal).Methods(http.MethodDelete)
	if s.hub != nil {
		v1.HandleFunc("/stream", s.hub.HandleStream).Methods(http.MethodGet)
	}
}

type ackResponse struct {
	Status string `json:"status"`
	GameID string `json:"gameId,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps errors every read handler can see.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNotStarted) {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind("api", ErrUnavailable, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}
