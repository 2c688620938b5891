package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/j-veylop/garmindl/internal/models"
)

// writtenStatuses matches units that produced a file.
const writtenStatuses = `('ok', 'empty')`

// LastUnit returns the most recent written unit for filename outside
// excludeRunID, or nil when the file was never written before.
func (db *DB) LastUnit(ctx context.Context, filename, excludeRunID string) (*models.UnitRecord, error) {
	query := `
		SELECT u.run_id, u.kind, u.year, u.month, u.filename, u.row_count, u.bytes,
			   u.checksum, u.status, u.duration_ms
		FROM run_units u
		JOIN runs r ON r.id = u.run_id
		WHERE u.filename = ? AND u.run_id != ? AND u.status IN ` + writtenStatuses + `
		ORDER BY r.started_at DESC, u.id DESC
		LIMIT 1
	`

	var unit models.UnitRecord
	var kind, status string
	var checksum sql.NullString

	err := db.QueryRowContext(ctx, query, filename, excludeRunID).Scan(
		&unit.RunID,
		&kind,
		&unit.Year,
		&unit.Month,
		&unit.Filename,
		&unit.Rows,
		&unit.Bytes,
		&checksum,
		&status,
		&unit.DurationMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last unit: %w", err)
	}

	unit.Kind = models.MetricKind(kind)
	unit.Status = models.UnitStatus(status)
	unit.Checksum = checksum.String
	return &unit, nil
}

// GetLedgerStats aggregates every recorded run.
func (db *DB) GetLedgerStats(ctx context.Context) (*models.LedgerStats, error) {
	stats := &models.LedgerStats{}

	var first, last sql.NullString
	err := db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(started_at), MAX(started_at) FROM runs`).
		Scan(&stats.Runs, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to query run totals: %w", err)
	}
	if first.Valid {
		stats.FirstRun = parseTime(first.String)
	}
	if last.Valid {
		stats.LastRun = parseTime(last.String)
	}

	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_units WHERE status = 'failed'`).
		Scan(&stats.FailedUnits)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed units: %w", err)
	}

	if err := db.getKindStats(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (db *DB) getKindStats(ctx context.Context, stats *models.LedgerStats) error {
	query := `
		SELECT kind, COUNT(*), SUM(row_count), SUM(bytes)
		FROM run_units
		WHERE status IN ` + writtenStatuses + `
		GROUP BY kind
		ORDER BY kind
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query kind totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ks models.KindStats
		var kind string
		var rowCount, bytes sql.NullInt64

		if err := rows.Scan(&kind, &ks.Files, &rowCount, &bytes); err != nil {
			return fmt.Errorf("failed to scan kind totals: %w", err)
		}

		ks.Kind = models.MetricKind(kind)
		ks.Rows = rowCount.Int64
		ks.Bytes = bytes.Int64
		stats.Kinds = append(stats.Kinds, ks)
	}

	return rows.Err()
}
