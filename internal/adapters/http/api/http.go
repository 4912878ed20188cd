// Package api exposes the host bridge, commands and read models over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/adapters/command"
	"github.com/okian/speedhud/internal/adapters/world"
	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/internal/domain/prefs"
	"github.com/okian/speedhud/pkg/logger"
)

// World is the host bridge the entity routes write to.
type World interface {
	Upsert(ctx context.Context, e world.Entity) (bool, error)
	Move(ctx context.Context, id uuid.UUID, pos model.Position) error
	Remove(ctx context.Context, id uuid.UUID) error
	Online(ctx context.Context) []model.Tracked
}

// Commands runs command arguments on behalf of a sender.
type Commands interface {
	Run(ctx context.Context, s command.Sender, args []string) []string
}

// Engine is the read side of the engine.
type Engine interface {
	QueryLeaderboard(ctx context.Context, viewer uuid.UUID) ([]model.RankedEntry, string, error)
	Preferences(viewer uuid.UUID) (prefs.Preferences, bool)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	Stats(ctx context.Context) map[string]any
}

// HUD attaches websocket viewers.
type HUD interface {
	Serve(w http.ResponseWriter, r *http.Request, viewer uuid.UUID) error
}

// Dependencies bundles what the handlers need.
type Dependencies struct {
	World    World
	Commands Commands
	Engine   Engine
	Stats    StatsProvider
	HUD      HUD
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	entitiesHandler    *EntitiesHandler
	commandsHandler    *CommandsHandler
	leaderboardHandler *LeaderboardHandler
	viewersHandler     *ViewersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps.Stats, deps.World),
		entitiesHandler:    NewEntitiesHandler(deps.World),
		commandsHandler:    NewCommandsHandler(deps.Commands),
		leaderboardHandler: NewLeaderboardHandler(deps.Engine),
		viewersHandler:     NewViewersHandler(deps.Engine, deps.HUD),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /v1/entities", MetricsMiddleware(s.entitiesHandler.HandleList, "entities"))
	mux.HandleFunc("PUT /v1/entities/{id}", MetricsMiddleware(s.entitiesHandler.HandleUpsert, "entities"))
	mux.HandleFunc("POST /v1/entities/{id}/position", MetricsMiddleware(s.entitiesHandler.HandleMove, "entity_position"))
	mux.HandleFunc("DELETE /v1/entities/{id}", MetricsMiddleware(s.entitiesHandler.HandleRemove, "entities"))

	mux.HandleFunc("POST /v1/commands", MetricsMiddleware(s.commandsHandler.HandlePostCommand, "commands"))
	mux.HandleFunc("GET /v1/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))

	mux.HandleFunc("GET /v1/viewers/{id}/preferences", MetricsMiddleware(s.viewersHandler.HandlePreferences, "preferences"))
	// The websocket handler hijacks the connection, so it skips the metrics wrapper.
	mux.HandleFunc("GET /v1/viewers/{id}/hud", s.viewersHandler.HandleHUD)
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

// pathID parses the {id} path value as a uuid.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id: %w", ErrBadRequest, err)
	}
	return id, nil
}

// queryViewer parses the optional viewer query parameter. Absent means uuid.Nil.
func queryViewer(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("viewer")
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid viewer: %w", ErrBadRequest, err)
	}
	return id, nil
}

func logRequestError(r *http.Request, op string, err error) {
	logger.Get().Named("api").Warn(r.Context(), "request failed",
		logger.String("op", op),
		logger.String("path", r.URL.Path),
		logger.Error(err),
	)
}
