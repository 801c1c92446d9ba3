// internal/server/handlers/status.go

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/koo5/hillview-sub009/internal/service/worker"
)

// StatusHandler reports bridge and pipeline state for local diagnostics.
type StatusHandler struct {
	hub     *Hub
	worker  *worker.Worker
	started time.Time
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(hub *Hub, wk *worker.Worker) *StatusHandler {
	return &StatusHandler{
		hub:     hub,
		worker:  wk,
		started: time.Now(),
	}
}

// GetStatus handles GET /api/v1/status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptimeSeconds":   int(time.Since(h.started).Seconds()),
		"hostConnections": h.hub.ClientCount(),
		"photosHeld":      h.worker.Photos().Count(),
		"activeProcesses": h.worker.Processes().HasActiveProcesses(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
