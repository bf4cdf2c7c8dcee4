package handlers

import (
	"context"
	"net/http"
)

// Pinger reports the health of a backing service.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a health handler over named backend checks.
// Nil pingers are skipped so optional backends can be passed directly.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	filtered := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			filtered[name] = p
		}
	}
	return &HealthHandler{checks: filtered}
}

// Live always reports success while the process is running.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports success only when every backend responds.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	for name, p := range h.checks {
		if err := p.Health(r.Context()); err != nil {
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
