package handler

import (
	"net/http"
)

// InfoHandler serves the root endpoint with basic API information.
type InfoHandler struct {
	version string
}

// NewInfoHandler creates an InfoHandler reporting the given server version.
func NewInfoHandler(version string) *InfoHandler {
	return &InfoHandler{version: version}
}

// HandleInfo processes GET /.
func (h *InfoHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Python Runner Backend",
		"version": h.version,
		"endpoints": map[string]string{
			"/api/run":        "POST - Execute Python code",
			"/api/install":    "POST - Install pip package",
			"/api/executions": "GET - List recorded executions",
			"/api/health":     "GET - Health check",
		},
	})
}
