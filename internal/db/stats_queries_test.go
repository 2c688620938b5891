package db

import (
	"context"
	"testing"
	"time"

	"github.com/j-veylop/garmindl/internal/models"
)

func seedRun(t *testing.T, db *DB, id string, started time.Time, units ...models.UnitRecord) {
	t.Helper()
	ctx := context.Background()
	if err := db.InsertRun(ctx, testRun(id, started)); err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}
	for _, u := range units {
		u.RunID = id
		if err := db.InsertUnit(ctx, u); err != nil {
			t.Fatalf("InsertUnit() failed: %v", err)
		}
	}
}

func TestLastUnit(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seedRun(t, db, "old", baseTime,
		models.UnitRecord{Kind: models.KindHeartRate, Year: 2024, Month: 5, Filename: "hr202405.csv", Checksum: "aaa", Status: models.UnitOK, Rows: 10})
	seedRun(t, db, "newer", baseTime.Add(time.Hour),
		models.UnitRecord{Kind: models.KindHeartRate, Year: 2024, Month: 5, Filename: "hr202405.csv", Checksum: "bbb", Status: models.UnitOK, Rows: 12})
	seedRun(t, db, "failed", baseTime.Add(2*time.Hour),
		models.UnitRecord{Kind: models.KindHeartRate, Year: 2024, Month: 5, Filename: "hr202405.csv", Status: models.UnitFailed, Error: "boom"})
	seedRun(t, db, "current", baseTime.Add(3*time.Hour),
		models.UnitRecord{Kind: models.KindHeartRate, Year: 2024, Month: 5, Filename: "hr202405.csv", Checksum: "ccc", Status: models.UnitOK})

	tests := []struct {
		name     string
		filename string
		exclude  string
		wantRun  string
		wantSum  string
	}{
		{"SkipsCurrentAndFailed", "hr202405.csv", "current", "newer", "bbb"},
		{"LatestOverall", "hr202405.csv", "", "current", "ccc"},
		{"NeverWritten", "bb202405.csv", "current", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.LastUnit(ctx, tt.filename, tt.exclude)
			if err != nil {
				t.Fatalf("LastUnit() failed: %v", err)
			}
			if tt.wantRun == "" {
				if got != nil {
					t.Errorf("LastUnit() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("LastUnit() = nil")
			}
			if got.RunID != tt.wantRun || got.Checksum != tt.wantSum {
				t.Errorf("LastUnit() = run %q checksum %q, want %q %q", got.RunID, got.Checksum, tt.wantRun, tt.wantSum)
			}
		})
	}
}

func TestGetLedgerStats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	empty, err := db.GetLedgerStats(ctx)
	if err != nil {
		t.Fatalf("GetLedgerStats() on empty ledger failed: %v", err)
	}
	if empty.Runs != 0 || !empty.FirstRun.IsZero() || len(empty.Kinds) != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	seedRun(t, db, "r1", baseTime,
		models.UnitRecord{Kind: models.KindBodyBattery, Filename: "bb202405.csv", Status: models.UnitOK, Rows: 15, Bytes: 400},
		models.UnitRecord{Kind: models.KindHeartRate, Filename: "hr202405.csv", Status: models.UnitFailed})
	seedRun(t, db, "r2", baseTime.Add(24*time.Hour),
		models.UnitRecord{Kind: models.KindBodyBattery, Filename: "bb202406.csv", Status: models.UnitEmpty, Bytes: 30},
		models.UnitRecord{Kind: models.KindHeartRate, Filename: "hr202406.csv", Status: models.UnitOK, Rows: 1000, Bytes: 20000})

	stats, err := db.GetLedgerStats(ctx)
	if err != nil {
		t.Fatalf("GetLedgerStats() failed: %v", err)
	}

	if stats.Runs != 2 || stats.FailedUnits != 1 {
		t.Errorf("Runs = %d, FailedUnits = %d", stats.Runs, stats.FailedUnits)
	}
	if !stats.FirstRun.Equal(baseTime) || !stats.LastRun.Equal(baseTime.Add(24*time.Hour)) {
		t.Errorf("FirstRun = %v, LastRun = %v", stats.FirstRun, stats.LastRun)
	}

	want := []models.KindStats{
		{Kind: models.KindBodyBattery, Files: 2, Rows: 15, Bytes: 430},
		{Kind: models.KindHeartRate, Files: 1, Rows: 1000, Bytes: 20000},
	}
	if len(stats.Kinds) != len(want) {
		t.Fatalf("Kinds = %+v", stats.Kinds)
	}
	for i := range want {
		if stats.Kinds[i] != want[i] {
			t.Errorf("Kinds[%d] = %+v, want %+v", i, stats.Kinds[i], want[i])
		}
	}
}
