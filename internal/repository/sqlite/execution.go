package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/pyrunner/internal/model"
	"github.com/sakif/pyrunner/internal/repository"
)

// Compile-time check that *DB implements repository.ExecutionRepository.
var _ repository.ExecutionRepository = (*DB)(nil)

// Create inserts a finished execution into the history table. The record's
// ID and CreatedAt are assigned here; the caller's struct is updated in place.
func (db *DB) Create(ctx context.Context, ex *model.Execution) error {
	ex.ID = xid.New().String()
	ex.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO executions (id, kind, success, exit_code, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ex.ID,
		ex.Kind,
		ex.Success,
		ex.ExitCode,
		ex.DurationMs,
		ex.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting execution: %w", err)
	}
	return nil
}

// List returns executions newest-first with limit/offset pagination.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Execution, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, kind, success, exit_code, duration_ms, created_at
		 FROM executions
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing executions: %w", err)
	}
	defer rows.Close()

	executions := []model.Execution{}
	for rows.Next() {
		var ex model.Execution
		if err := rows.Scan(&ex.ID, &ex.Kind, &ex.Success, &ex.ExitCode, &ex.DurationMs, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning execution: %w", err)
		}
		executions = append(executions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating executions: %w", err)
	}

	return executions, nil
}
