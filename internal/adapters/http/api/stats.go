package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsHandler serves engine counters merged with bridge-side figures.
type StatsHandler struct {
	engine  StatsProvider
	world   World
	started time.Time
}

// NewStatsHandler creates a stats handler; uptime is measured from now.
func NewStatsHandler(engine StatsProvider, w World) *StatsHandler {
	return &StatsHandler{engine: engine, world: w, started: time.Now()}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"onlineEntities": len(h.world.Online(r.Context())),
		"uptimeSeconds":  int64(time.Since(h.started).Seconds()),
	}
	maps.Copy(out, h.engine.Stats(r.Context()))
	writeJSON(w, http.StatusOK, out)
}
