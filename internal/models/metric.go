// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"strings"
)

// MetricKind identifies one of the downloadable Garmin metrics.
type MetricKind string

const (
	// KindBodyBattery is the daily Body Battery summary.
	KindBodyBattery MetricKind = "bb"
	// KindHeartRate is the per-reading heart rate series.
	KindHeartRate MetricKind = "hr"
)

// AllKinds lists the supported metric kinds in their canonical order.
var AllKinds = []MetricKind{KindBodyBattery, KindHeartRate}

var (
	bodyBatteryFields = []string{"date", "charged", "drained", "max", "min"}
	heartRateFields   = []string{"timestamp", "heartrate"}
)

// ParseMetricKind converts a datatype name into a MetricKind.
func ParseMetricKind(s string) (MetricKind, error) {
	switch k := MetricKind(strings.TrimSpace(s)); k {
	case KindBodyBattery, KindHeartRate:
		return k, nil
	default:
		return "", fmt.Errorf("invalid datatype %q, choose from [bb hr]", s)
	}
}

// Fields returns the CSV header of the metric.
func (k MetricKind) Fields() []string {
	switch k {
	case KindBodyBattery:
		return append([]string(nil), bodyBatteryFields...)
	case KindHeartRate:
		return append([]string(nil), heartRateFields...)
	default:
		return nil
	}
}

// Filename returns the CSV file name for one month of the metric, e.g. bb202405.csv.
func (k MetricKind) Filename(year, month int) string {
	return fmt.Sprintf("%s%d%02d.csv", k, year, month)
}

// DisplayName returns a human readable metric name.
func (k MetricKind) DisplayName() string {
	switch k {
	case KindBodyBattery:
		return "Body Battery"
	case KindHeartRate:
		return "Heart Rate"
	default:
		return string(k)
	}
}
