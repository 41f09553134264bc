package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/courtside/internal/domain/lifecycle"
	"github.com/okian/courtside/internal/domain/model"
)

// SignalDependencies reads and closes signals.
type SignalDependencies interface {
	Signals(ctx context.Context) ([]*model.Signal, error)
	Signal(ctx context.Context, strategyID, gameID string) (*model.Signal, error)
	CloseSignal(ctx context.Context, strategyID, gameID string) (*model.Signal, error)
}

// SignalsHandler handles signal requests.
type SignalsHandler struct {
	deps SignalDependencies
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(deps SignalDependencies) *SignalsHandler {
	return &SignalsHandler{deps: deps}
}

// HandleListSignals handles GET /v1/signals requests: signals not yet final,
// oldest first, optionally narrowed by ?gameId= and ?strategyId=.
func (h *SignalsHandler) HandleListSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.deps.Signals(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := r.URL.Query()
	gameID, strategyID := q.Get("gameId"), q.Get("strategyId")
	if gameID != "" || strategyID != "" {
		filtered := make([]*model.Signal, 0, len(signals))
		for _, s := range signals {
			if (gameID == "" || s.GameID == gameID) && (strategyID == "" || s.StrategyID == strategyID) {
				filtered = append(filtered, s)
			}
		}
		signals = filtered
	}
	writeJSON(w, http.StatusOK, signalsResponse{Signals: signals, Count: len(signals)})
}

// HandleGetSignal handles GET /v1/signals/{strategyID}/{gameID} requests.
func (h *SignalsHandler) HandleGetSignal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sig, err := h.deps.Signal(r.Context(), vars["strategyID"], vars["gameID"])
	if err != nil {
		writeSignalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

// HandleCloseSignal handles DELETE /v1/signals/{strategyID}/{gameID} requests.
func (h *SignalsHandler) HandleCloseSignal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sig, err := h.deps.CloseSignal(r.Context(), vars["strategyID"], vars["gameID"])
	if err != nil {
		writeSignalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func writeSignalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, lifecycle.ErrAlreadyClosed):
		writeError(w, http.StatusConflict, "conflict", WrapKind("api.close_signal", ErrConflict, err))
	default:
		writeServiceError(w, err)
	}
}

type signalsResponse struct {
	Signals []*model.Signal `json:"signals"`
	Count   int             `json:"count"`
}
