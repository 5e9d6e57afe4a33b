package handler

import (
	"net/http"

	"github.com/vaultwatch/vaultwatch/internal/collector"
)

// MetricsHandler serves the current merged metrics snapshot and the raw
// streaming view.
type MetricsHandler struct {
	store *collector.Store
	live  collector.LiveView // nil when streaming is disabled
}

// NewMetricsHandler creates a MetricsHandler. live may be nil.
func NewMetricsHandler(store *collector.Store, live collector.LiveView) *MetricsHandler {
	return &MetricsHandler{store: store, live: live}
}

// GetMetrics returns the most recent merged snapshot, or 404 until the first
// collection cycle has completed.
// GET /api/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	m, ok := h.store.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no metrics published yet")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetLive returns the raw streaming view without batch merging, or 404 when
// streaming is disabled.
// GET /api/metrics/live
func (h *MetricsHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		writeError(w, http.StatusNotFound, "streaming disabled")
		return
	}
	writeJSON(w, http.StatusOK, h.live.View())
}
