package handlers

import (
	"net/http"
)

const (
	statusHealthy = "healthy"
	statusAlive   = "alive"
)

// HealthCheck is the load balancer probe. Its body never changes.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, statusHealthy)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": statusAlive})
	}
}
