package handlers

import (
	"net/http"
	"time"

	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/repositories"
)

var startTime = time.Now()

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	ready repositories.HealthRepository
	clock func() time.Time
}

// NewHealthHandlers builds probe handlers. A nil repository makes readiness
// unconditionally succeed, which keeps local setups working without backends.
func NewHealthHandlers(ready repositories.HealthRepository) *HealthHandlers {
	return &HealthHandlers{
		ready: ready,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": h.clock().Format(time.RFC3339),
	})
}

// Readyz probes backing dependencies and reports 503 until they all answer.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	status := h.ready.Check(r.Context())
	if !status.Healthy {
		details := make(map[string]any, len(status.Details))
		for name, state := range status.Details {
			details[name] = state
		}
		httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", "one or more dependencies are unavailable", http.StatusServiceUnavailable).WithDetails(map[string]any{"dependencies": details}))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"dependencies": status.Details,
		"checkedAt":    status.At.Format(time.RFC3339),
	})
}
