package handler

import (
	"net/http"
	"strings"

	"github.com/vaultwatch/vaultwatch/internal/alert"
	"github.com/vaultwatch/vaultwatch/internal/domain"
)

// AlertsHandler serves the in-memory alert history.
type AlertsHandler struct {
	log *alert.Log
}

// NewAlertsHandler creates an AlertsHandler over the given log.
func NewAlertsHandler(log *alert.Log) *AlertsHandler {
	return &AlertsHandler{log: log}
}

// ListAlerts returns the newest alerts first, optionally filtered by level.
// GET /api/alerts?limit=50&level=critical
func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 1000)

	var minLevel domain.AlertLevel
	switch strings.ToLower(r.URL.Query().Get("level")) {
	case "", "info":
		minLevel = domain.AlertInfo
	case "warning":
		minLevel = domain.AlertWarning
	case "critical":
		minLevel = domain.AlertCritical
	default:
		writeError(w, http.StatusBadRequest, "level must be info, warning, or critical")
		return
	}

	entries := h.log.Snapshot()
	out := make([]domain.Alert, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		if entries[i].Level >= minLevel {
			out = append(out, entries[i])
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": out,
		"total":  h.log.Len(),
	})
}
