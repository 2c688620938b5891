package db

import (
	"context"
	"fmt"
	"time"

	"github.com/j-veylop/garmindl/internal/models"
)

// StaleRunAge is how long a run may stay in the running state before it is
// treated as abandoned by its process.
const StaleRunAge = 6 * time.Hour

// MarkInterruptedRuns closes out runs left in the running state that started
// before the cutoff. Newer running rows may belong to a live process.
func (db *DB) MarkInterruptedRuns(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE runs
		SET status = ?, error = COALESCE(error, 'process exited before the run finished')
		WHERE status = ? AND finished_at IS NULL AND started_at < ?
	`
	result, err := db.ExecContext(ctx, query, models.InterruptedStatus, models.RunningStatus, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted runs: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// PruneRuns deletes all but the keep most recent runs and their units.
func (db *DB) PruneRuns(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM runs
		WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)
	`
	result, err := db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
