package models

import (
	"strconv"
	"time"
)

// TimestampLayout is how heart-rate timestamps are rendered in CSV files.
const TimestampLayout = "2006-01-02 15:04:05"

// Row is one CSV record. Field reports the rendered value of a named column
// and whether the row carries that column at all.
type Row interface {
	Field(name string) (string, bool)
}

// BodyBatteryRow is the daily Body Battery summary. Nil numbers are absent values.
type BodyBatteryRow struct {
	Charged *float64
	Drained *float64
	Max     *float64
	Min     *float64
	Date    string
}

// Field implements Row.
func (r BodyBatteryRow) Field(name string) (string, bool) {
	switch name {
	case "date":
		return r.Date, true
	case "charged":
		return formatNumber(r.Charged), true
	case "drained":
		return formatNumber(r.Drained), true
	case "max":
		return formatNumber(r.Max), true
	case "min":
		return formatNumber(r.Min), true
	default:
		return "", false
	}
}

// HeartRateRow is a single heart rate reading.
type HeartRateRow struct {
	Timestamp time.Time
	HeartRate int
}

// Field implements Row.
func (r HeartRateRow) Field(name string) (string, bool) {
	switch name {
	case "timestamp":
		return r.Timestamp.Format(TimestampLayout), true
	case "heartrate":
		return strconv.Itoa(r.HeartRate), true
	default:
		return "", false
	}
}

// formatNumber renders whole numbers without a fractional part and nil as "".
func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Batch is the fetched content of one (kind, month) unit.
type Batch struct {
	Kind     MetricKind
	Filename string
	Rows     []Row
	Year     int
	Month    int
}
