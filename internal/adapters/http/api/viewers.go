package api

import (
	"net/http"

	"github.com/okian/speedhud/internal/domain/prefs"
)

// ViewersHandler serves per-viewer preferences and the live HUD socket.
type ViewersHandler struct {
	engine Engine
	hud    HUD
}

// NewViewersHandler creates a new viewers handler.
func NewViewersHandler(e Engine, hud HUD) *ViewersHandler {
	return &ViewersHandler{engine: e, hud: hud}
}

type preferencesResponse struct {
	prefs.Preferences
	Known bool `json:"known"`
}

// HandlePreferences handles GET /v1/viewers/{id}/preferences.
func (h *ViewersHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	p, ok := h.engine.Preferences(id)
	writeJSON(w, http.StatusOK, preferencesResponse{Preferences: p, Known: ok})
}

// HandleHUD handles GET /v1/viewers/{id}/hud by upgrading to a websocket.
func (h *ViewersHandler) HandleHUD(w http.ResponseWriter, r *http.Request) {
	const op = "api.hud"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.hud.Serve(w, r, id); err != nil {
		// The upgrader already replied.
		logRequestError(r, op, err)
	}
}
