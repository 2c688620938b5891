package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/garmindl/internal/logger"
	"github.com/j-veylop/garmindl/internal/models"
)

// InsertRun records the start of a run.
func (db *DB) InsertRun(ctx context.Context, run models.RunRecord) error {
	query := `
		INSERT INTO runs (id, started_at, year, months, kinds, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	status := run.Status
	if status == "" {
		status = models.RunningStatus
	}

	_, err := db.ExecContext(ctx, query,
		run.ID,
		formatTime(startedAt),
		run.Year,
		models.JoinMonths(run.Months),
		models.JoinKinds(run.Kinds),
		status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (db *DB) FinishRun(ctx context.Context, run models.RunRecord) error {
	query := `
		UPDATE runs SET finished_at = ?, status = ?, error = ?
		WHERE id = ?
	`

	finishedAt := run.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	result, err := db.ExecContext(ctx, query,
		formatTime(finishedAt),
		run.Status,
		nullString(run.Error),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// InsertUnit records the outcome of one (kind, month) unit.
func (db *DB) InsertUnit(ctx context.Context, unit models.UnitRecord) error {
	query := `
		INSERT INTO run_units (
			run_id, kind, year, month, filename, row_count, bytes,
			checksum, status, error, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		unit.RunID,
		string(unit.Kind),
		unit.Year,
		unit.Month,
		unit.Filename,
		unit.Rows,
		unit.Bytes,
		nullString(unit.Checksum),
		string(unit.Status),
		nullString(unit.Error),
		unit.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run unit: %w", err)
	}
	return nil
}

// GetRecentRuns returns the most recent runs, newest first, with their units.
func (db *DB) GetRecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, year, months, kinds, status, error
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.RunRecord
	for rows.Next() {
		var run models.RunRecord
		var startedAt, months, kinds string
		var finishedAt, errStr sql.NullString

		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Year, &months, &kinds, &run.Status, &errStr); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			run.FinishedAt = parseTime(finishedAt.String)
		}
		run.Months = models.SplitMonths(months)
		run.Kinds = models.SplitKinds(kinds)
		run.Error = errStr.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		units, err := db.GetRunUnits(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Units = units
	}

	return runs, nil
}

// GetRunUnits returns the units of a run in the order they ran.
func (db *DB) GetRunUnits(ctx context.Context, runID string) ([]models.UnitRecord, error) {
	query := `
		SELECT run_id, kind, year, month, filename, row_count, bytes,
			   checksum, status, error, duration_ms
		FROM run_units
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var units []models.UnitRecord
	for rows.Next() {
		var unit models.UnitRecord
		var kind, status string
		var checksum, errStr sql.NullString

		err := rows.Scan(
			&unit.RunID,
			&kind,
			&unit.Year,
			&unit.Month,
			&unit.Filename,
			&unit.Rows,
			&unit.Bytes,
			&checksum,
			&status,
			&errStr,
			&unit.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run unit: %w", err)
		}

		unit.Kind = models.MetricKind(kind)
		unit.Status = models.UnitStatus(status)
		unit.Checksum = checksum.String
		unit.Error = errStr.String
		units = append(units, unit)
	}

	return units, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		logger.Warn("unparseable ledger timestamp", "value", s, "error", err)
		return time.Time{}
	}
	return t
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
