package handler

import (
	"net/http"
	"time"
)

// HealthResponse is the liveness probe payload. PythonVersion identifies the
// interpreter executions will run under; it is empty if the startup probe
// found no interpreter.
type HealthResponse struct {
	Status        string  `json:"status"`
	PythonVersion string  `json:"python_version"`
	Timestamp     float64 `json:"timestamp"`
}

// HealthHandler reports process liveness for external monitoring.
type HealthHandler struct {
	pythonVersion func() string
}

// NewHealthHandler creates a HealthHandler. version is called on each probe
// so a handler can outlive an executor restart.
func NewHealthHandler(version func() string) *HealthHandler {
	return &HealthHandler{pythonVersion: version}
}

// HandleHealth processes GET /api/health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		PythonVersion: h.pythonVersion(),
		Timestamp:     float64(time.Now().UnixMilli()) / 1000.0,
	})
}
