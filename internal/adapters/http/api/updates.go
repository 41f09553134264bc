package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/courtside/internal/adapters/mq/queue"
	service "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/domain/model"
)

const maxUpdateBody = 1 << 20

// UpdateDependencies accepts game updates.
type UpdateDependencies interface {
	// Ingest returns false with a nil error when the update was debounced.
	Ingest(ctx context.Context, u *model.GameUpdate, source string) (bool, error)
}

// UpdatesHandler handles the game-update webhook.
type UpdatesHandler struct {
	deps UpdateDependencies
}

// NewUpdatesHandler creates a new updates handler.
func NewUpdatesHandler(deps UpdateDependencies) *UpdatesHandler {
	return &UpdatesHandler{deps: deps}
}

// HandlePostUpdate handles POST /v1/games/updates requests.
func (h *UpdatesHandler) HandlePostUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_update"

	var u model.GameUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	accepted, err := h.deps.Ingest(r.Context(), &u, "webhook")
	switch {
	case errors.Is(err, model.ErrInvalidUpdate):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, queue.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	status := "accepted"
	if !accepted {
		status = "debounced"
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: status, GameID: u.ID})
}
