package models

import "time"

// UnitChange compares a written file with the previous download of the same file.
type UnitChange string

const (
	// ChangeUnknown means no ledger was available to compare with.
	ChangeUnknown UnitChange = ""
	// ChangeNew means the file was never downloaded before.
	ChangeNew UnitChange = "new"
	// ChangeSame means the content matches the previous download.
	ChangeSame UnitChange = "same"
	// ChangeUpdated means the content differs from the previous download.
	ChangeUpdated UnitChange = "changed"
)

// CompareChecksum classifies checksum against the previous download.
func CompareChecksum(prev *UnitRecord, checksum string) UnitChange {
	switch {
	case prev == nil:
		return ChangeNew
	case prev.Checksum == checksum:
		return ChangeSame
	default:
		return ChangeUpdated
	}
}

// KindStats aggregates the written files of one metric kind.
type KindStats struct {
	Kind  MetricKind
	Files int
	Rows  int64
	Bytes int64
}

// LedgerStats summarizes the run ledger.
type LedgerStats struct {
	FirstRun    time.Time
	LastRun     time.Time
	Kinds       []KindStats
	Runs        int
	FailedUnits int
}
