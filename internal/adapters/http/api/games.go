package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/courtside/internal/adapters/repository"
	"github.com/okian/courtside/internal/domain/model"
)

// GameDependencies reads live game state.
type GameDependencies interface {
	Games(ctx context.Context) ([]*model.GameSnapshot, error)
	Game(ctx context.Context, id string) (*model.GameSnapshot, error)
}

// GamesHandler handles game read requests.
type GamesHandler struct {
	deps GameDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GameDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// HandleListGames handles GET /v1/games requests. Games closest to completion
// come first; ?status= filters by status.
func (h *GamesHandler) HandleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.deps.Games(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if status := model.Status(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind("api.list_games", ErrBadRequest, errors.New("unknown status")))
			return
		}
		filtered := make([]*model.GameSnapshot, 0, len(games))
		for _, g := range games {
			if g.Status == status {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}
	writeJSON(w, http.StatusOK, gamesResponse{Games: games, Count: len(games)})
}

// HandleGetGame handles GET /v1/games/{id} requests.
func (h *GamesHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.deps.Game(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type gamesResponse struct {
	Games []*model.GameSnapshot `json:"games"`
	Count int                   `json:"count"`
}
