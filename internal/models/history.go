package models

import (
	"strconv"
	"strings"
	"time"
)

// RunRecord is a run as stored in the ledger.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	ID         string
	Status     string
	Error      string
	Months     []int
	Kinds      []MetricKind
	Units      []UnitRecord
	Year       int
}

// UnitRecord is a (kind, month) unit as stored in the ledger.
type UnitRecord struct {
	RunID      string
	Kind       MetricKind
	Filename   string
	Checksum   string
	Error      string
	Status     UnitStatus
	Bytes      int64
	DurationMs int64
	Rows       int
	Year       int
	Month      int
}

// RunningStatus marks a run that has started but not finished.
const RunningStatus = "running"

// InterruptedStatus marks a run whose process exited before finishing.
const InterruptedStatus = "interrupted"

// Record converts the report into its ledger form.
func (r *RunReport) Record() RunRecord {
	rec := RunRecord{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Year:       r.Request.Year,
		Months:     r.Request.Months,
		Kinds:      r.Request.Kinds,
		Status:     RunningStatus,
	}
	if !r.FinishedAt.IsZero() {
		rec.Status = r.Status()
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

// Record converts the unit result into its ledger form.
func (u UnitResult) Record(runID string) UnitRecord {
	rec := UnitRecord{
		RunID:      runID,
		Kind:       u.Kind,
		Year:       u.Year,
		Month:      u.Month,
		Filename:   u.Kind.Filename(u.Year, u.Month),
		Rows:       u.Rows,
		Bytes:      u.Bytes,
		Checksum:   u.Checksum,
		Status:     u.Status,
		DurationMs: u.Duration.Milliseconds(),
	}
	if u.Err != nil {
		rec.Error = u.Err.Error()
	}
	return rec
}

// JoinMonths renders months as "5,6,7".
func JoinMonths(months []int) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}

// SplitMonths parses the JoinMonths form, skipping malformed entries.
func SplitMonths(s string) []int {
	var months []int
	for _, p := range strings.Split(s, ",") {
		if m, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			months = append(months, m)
		}
	}
	return months
}

// JoinKinds renders kinds as "bb,hr".
func JoinKinds(kinds []MetricKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

// SplitKinds parses the JoinKinds form.
func SplitKinds(s string) []MetricKind {
	var kinds []MetricKind
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			kinds = append(kinds, MetricKind(p))
		}
	}
	return kinds
}

// MonthSpan renders months compactly: "5", "5-8" for a contiguous ascending
// run, otherwise the comma list.
func MonthSpan(months []int) string {
	switch len(months) {
	case 0:
		return ""
	case 1:
		return strconv.Itoa(months[0])
	}
	for i := 1; i < len(months); i++ {
		if months[i] != months[i-1]+1 {
			return JoinMonths(months)
		}
	}
	return strconv.Itoa(months[0]) + "-" + strconv.Itoa(months[len(months)-1])
}
