package api

import (
	"errors"
	"net/http"

	"github.com/okian/speedhud/internal/adapters/repository"
	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/pkg/metrics"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	engine Engine
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(e Engine) *LeaderboardHandler {
	return &LeaderboardHandler{engine: e}
}

type leaderboardResponse struct {
	Unit    string              `json:"unit"`
	Entries []model.RankedEntry `json:"entries"`
}

// HandleGetLeaderboard handles GET /v1/leaderboard?viewer=ID. Speeds are
// projected into the viewer's leaderboard unit, or the default one.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	viewer, err := queryViewer(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, label, err := h.engine.QueryLeaderboard(r.Context(), viewer)
	switch {
	case errors.Is(err, repository.ErrNoData):
		entries = []model.RankedEntry{}
	case err != nil:
		logRequestError(r, op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
		return
	}
	metrics.RecordLeaderboardQuery()
	writeJSON(w, http.StatusOK, leaderboardResponse{Unit: label, Entries: entries})
}
