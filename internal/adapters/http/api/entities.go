package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/speedhud/internal/adapters/world"
	"github.com/okian/speedhud/internal/domain/model"
)

// EntitiesHandler lets the host report entities coming online, moving and leaving.
type EntitiesHandler struct {
	world World
}

// NewEntitiesHandler creates a new entities handler.
func NewEntitiesHandler(w World) *EntitiesHandler {
	return &EntitiesHandler{world: w}
}

type entityRequest struct {
	Name        string         `json:"name"`
	Position    model.Position `json:"position"`
	Permissions []string       `json:"permissions"`
}

type entityResponse struct {
	Status string `json:"status"`
}

// HandleList handles GET /v1/entities.
func (h *EntitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.world.Online(r.Context()))
}

// HandleUpsert handles PUT /v1/entities/{id}.
func (h *EntitiesHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_entity"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	created, err := h.world.Upsert(r.Context(), world.Entity{
		ID:          id,
		Name:        req.Name,
		Position:    req.Position,
		Permissions: req.Permissions,
	})
	if err != nil {
		if errors.Is(err, world.ErrInvalidEntity) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		logRequestError(r, op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
		return
	}
	if created {
		writeJSON(w, http.StatusCreated, entityResponse{Status: "created"})
		return
	}
	writeJSON(w, http.StatusOK, entityResponse{Status: "updated"})
}

// HandleMove handles POST /v1/entities/{id}/position.
func (h *EntitiesHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var pos model.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := h.world.Move(r.Context(), id, pos); err != nil {
		if errors.Is(err, world.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %w", ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemove handles DELETE /v1/entities/{id}.
func (h *EntitiesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.world.Remove(r.Context(), id); err != nil {
		if errors.Is(err, world.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %w", ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
