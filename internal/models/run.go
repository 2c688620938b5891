package models

import (
	"fmt"
	"time"
)

// Request describes what a run downloads.
type Request struct {
	Kinds  []MetricKind
	Months []int
	Year   int
}

// Validate checks the request invariants.
func (r Request) Validate() error {
	if len(r.Kinds) == 0 {
		return NewUsageError("at least one datatype is required")
	}
	for _, k := range r.Kinds {
		if _, err := ParseMetricKind(string(k)); err != nil {
			return NewUsageError("%v", err)
		}
	}
	if len(r.Months) == 0 {
		return NewUsageError("at least one month is required")
	}
	for _, m := range r.Months {
		if m < 1 || m > 12 {
			return NewUsageError("month must be between 1 and 12, got %d", m)
		}
	}
	return nil
}

// UnitCount returns the number of (kind, month) units in the request.
func (r Request) UnitCount() int {
	return len(r.Kinds) * len(r.Months)
}

// UnitStatus is the outcome of one (kind, month) unit.
type UnitStatus string

const (
	UnitOK      UnitStatus = "ok"
	UnitEmpty   UnitStatus = "empty"
	UnitFailed  UnitStatus = "failed"
	UnitSkipped UnitStatus = "skipped"
)

// UnitResult records what happened to a single (kind, month) unit.
type UnitResult struct {
	Err      error
	Kind     MetricKind
	Path     string
	Checksum string
	Warnings []string
	// DailyMeans holds the mean heart rate per day for hr units, used for charts.
	DailyMeans []float64
	Duration   time.Duration
	Bytes      int64
	Rows       int
	Year       int
	Month      int
	Status     UnitStatus
	// Change compares the file with its previous download, when a ledger is set.
	Change UnitChange
}

// Label renders the unit as "hr 2024-05".
func (u UnitResult) Label() string {
	return fmt.Sprintf("%s %d-%02d", u.Kind, u.Year, u.Month)
}

// RunReport is the per-unit outcome of one run.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
	ID         string
	Units      []UnitResult
	Request    Request
}

// Failed returns the units that did not complete.
func (r *RunReport) Failed() []UnitResult {
	var failed []UnitResult
	for _, u := range r.Units {
		if u.Status == UnitFailed {
			failed = append(failed, u)
		}
	}
	return failed
}

// Count returns the number of units with the given status.
func (r *RunReport) Count(status UnitStatus) int {
	n := 0
	for _, u := range r.Units {
		if u.Status == status {
			n++
		}
	}
	return n
}

// Status summarizes the run: "ok", "partial" or "failed".
func (r *RunReport) Status() string {
	failed := r.Count(UnitFailed) + r.Count(UnitSkipped)
	switch {
	case r.Err != nil && len(r.Units) == 0:
		return "failed"
	case failed == 0 && r.Err == nil:
		return "ok"
	case failed == len(r.Units):
		return "failed"
	default:
		return "partial"
	}
}
