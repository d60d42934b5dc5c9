package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docq/internal/errs"
)

const stepsDDL = `
CREATE TABLE IF NOT EXISTS workflow_steps (
    run_id       TEXT NOT NULL,
    step         TEXT NOT NULL,
    result       BLOB NOT NULL,
    completed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (run_id, step)
);
`

// SQLiteRunner checkpoints step results in a SQLite table keyed by
// (run id, step name). Distinct runners for the same run id share
// checkpoints, which is what makes a re-submitted run resume instead of
// starting over.
type SQLiteRunner struct {
	db     *sql.DB
	runID  string
	policy RetryPolicy
}

// NewSQLiteRunner creates a runner for one logical run, initializing the
// checkpoint table if needed.
func NewSQLiteRunner(db *sql.DB, runID string, policy RetryPolicy) (*SQLiteRunner, error) {
	if _, err := db.Exec(stepsDDL); err != nil {
		return nil, fmt.Errorf("init workflow schema: %w", err)
	}
	return &SQLiteRunner{db: db, runID: runID, policy: policy.sanitized()}, nil
}

// Run executes the named step unless a checkpoint for it already exists,
// in which case the stored result is returned untouched. Failures are
// retried with exponential backoff up to the policy's attempt budget;
// invalid errors and context cancellation stop retries immediately.
func (r *SQLiteRunner) Run(ctx context.Context, name string, fn StepFunc) ([]byte, error) {
	var stored []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT result FROM workflow_steps WHERE run_id = ? AND step = ?",
		r.runID, name,
	).Scan(&stored)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load checkpoint %s/%s: %w", r.runID, name, err)
	}

	result, err := r.execute(ctx, name, fn)
	if err != nil {
		return nil, err
	}

	// The step may run again concurrently or after a crash before this
	// write lands; last writer wins and step bodies are idempotent, so
	// either result is equally valid.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_steps (run_id, step, result) VALUES (?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			result = excluded.result,
			completed_at = CURRENT_TIMESTAMP
	`, r.runID, name, result)
	if err != nil {
		return nil, fmt.Errorf("record checkpoint %s/%s: %w", r.runID, name, err)
	}
	return result, nil
}

func (r *SQLiteRunner) execute(ctx context.Context, name string, fn StepFunc) ([]byte, error) {
	delay := r.policy.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errs.IsInvalid(err) || ctx.Err() != nil || attempt == r.policy.MaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("step %s: %w", name, ctx.Err())
		}
		delay *= 2
	}
	return nil, fmt.Errorf("step %s: %w", name, lastErr)
}
