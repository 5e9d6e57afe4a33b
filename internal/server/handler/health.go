package handler

import (
	"net/http"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/collector"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	store   *collector.Store
	started time.Time
}

// NewHealthHandler creates a HealthHandler reading freshness from the store.
func NewHealthHandler(store *collector.Store, started time.Time) *HealthHandler {
	return &HealthHandler{store: store, started: started}
}

// HealthCheck responds with liveness plus the age of the last published
// snapshot.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if last := h.store.LastUpdate(); !last.IsZero() {
		resp["last_update"] = last.UTC().Format(time.RFC3339)
		resp["snapshot_age_seconds"] = int64(time.Since(last).Seconds())
	}
	writeJSON(w, http.StatusOK, resp)
}
