package handler

import (
	"net/http"
)

// HealthHandler handles liveness probes.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
}
