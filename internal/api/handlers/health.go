package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cxd309/railsim/internal/routestore"
)

type HealthHandler struct {
	startTime time.Time
	sim       Simulation
	store     routestore.Store // may be nil
}

func NewHealthHandler(sim Simulation, store routestore.Store) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), sim: sim, store: store}
}

// Health handles GET /health, checking route store connectivity
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	database := "disabled"
	var storeErr string

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := h.store.List(ctx); err != nil {
			status, code = "error", http.StatusServiceUnavailable
			database = "disconnected"
			storeErr = err.Error()
		} else {
			database = "connected"
		}
	}

	resp := map[string]any{
		"status":    status,
		"database":  database,
		"trains":    len(h.sim.Snapshot()),
		"track":     h.sim.Network().HasTrack(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startTime).String(),
	}
	if storeErr != "" {
		resp["error"] = storeErr
	}
	writeJSON(w, code, resp)
}
