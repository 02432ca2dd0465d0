package repository

import (
	"context"

	"github.com/sakif/pyrunner/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ExecutionRepository stores the outcomes of finished runs and installs.
type ExecutionRepository interface {
	Create(ctx context.Context, ex *model.Execution) error
	List(ctx context.Context, opts ListOptions) ([]model.Execution, error)
}
