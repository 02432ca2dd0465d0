package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/pyrunner/internal/model"
)

// HistoryLister is the slice of the service layer the history endpoint needs.
type HistoryLister interface {
	History(ctx context.Context, limit, offset int) ([]model.Execution, error)
}

// ExecutionsHandler serves the execution-history listing.
type ExecutionsHandler struct {
	history HistoryLister
	logger  *slog.Logger
}

// NewExecutionsHandler creates a new ExecutionsHandler.
func NewExecutionsHandler(history HistoryLister, logger *slog.Logger) *ExecutionsHandler {
	return &ExecutionsHandler{
		history: history,
		logger:  logger,
	}
}

// HandleList processes GET /api/executions?limit=&offset=.
// Unparseable pagination values fall back to defaults; the service clamps
// them to sane bounds either way.
func (h *ExecutionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	executions, err := h.history.History(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list executions", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, executions)
}
