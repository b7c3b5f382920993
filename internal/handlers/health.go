package handlers

import (
	"net/http"
)

// HealthHandler reports liveness and the media backend the gateway fronts.
// It never calls the provider.
type HealthHandler struct {
	Backend string
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
}

// Handle implements GET and HEAD /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok", Backend: h.Backend})
}
