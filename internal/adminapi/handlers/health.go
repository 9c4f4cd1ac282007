package handlers

import (
	"net/http"
	"time"

	"github.com/duraqio/duraq/internal/session"
)

// HealthHandler serves unauthenticated liveness and broker-status probes.
type HealthHandler struct {
	cmd       *session.Handler
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler bound to cmd.
func NewHealthHandler(cmd *session.Handler) *HealthHandler {
	return &HealthHandler{cmd: cmd, startTime: time.Now()}
}

// Liveness handles GET /health - always succeeds while the HTTP server is
// responsive, for container liveness probes.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	writeJSON(w, http.StatusOK, okResponse(map[string]any{
		"service":    "duraqd",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
	}))
}

// Status handles GET /health/status - reports the broker's current
// up/readonly/quiescent state as set via the status text command.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.cmd.CurrentStatus()
	if err != nil {
		writeJSON(w, http.StatusOK, okResponse(map[string]string{"status": "not_configured"}))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"status": status}))
}
