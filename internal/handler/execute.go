package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/pyrunner/internal/model"
)

// Gate is the part of the service layer the execution handlers need. It never
// returns an error: every outcome, including faults, arrives as a complete
// ExecutionResult ready to render.
type Gate interface {
	Run(ctx context.Context, code string) *model.ExecutionResult
	Install(ctx context.Context, pkg string) *model.ExecutionResult
}

// ExecuteHandler handles code execution and package installation requests.
type ExecuteHandler struct {
	gate   Gate
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(gate Gate, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		gate:   gate,
		logger: logger,
	}
}

// HandleRun processes POST /api/run. Rate limiting has already happened in
// middleware; everything past this point is a 200 with a result body.
func (h *ExecuteHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req model.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid run request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, model.ExecutionResult{
			Success: false,
			Output:  "",
			Errors:  "Server error: invalid request body",
		})
		return
	}

	h.logger.Info("executing python code", slog.Int("codeBytes", len(req.Code)))
	writeJSON(w, http.StatusOK, h.gate.Run(r.Context(), req.Code))
}

// HandleInstall processes POST /api/install.
func (h *ExecuteHandler) HandleInstall(w http.ResponseWriter, r *http.Request) {
	var req model.InstallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid install request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, model.ExecutionResult{
			Success: false,
			Output:  "",
			Errors:  "Server error: invalid request body",
		})
		return
	}

	h.logger.Info("installing python package", slog.String("package", req.Package))
	writeJSON(w, http.StatusOK, h.gate.Install(r.Context(), req.Package))
}
