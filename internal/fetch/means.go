package fetch

import (
	"github.com/j-veylop/garmindl/internal/calendar"
	"github.com/j-veylop/garmindl/internal/models"
)

// DailyMeans returns the mean heart rate of each day that has readings, in
// the order the days first appear.
func DailyMeans(rows []models.Row) []float64 {
	type acc struct {
		sum   int
		count int
	}

	var order []string
	days := make(map[string]*acc)
	for _, r := range rows {
		hr, ok := r.(models.HeartRateRow)
		if !ok {
			continue
		}
		key := calendar.ISODate(hr.Timestamp)
		a, seen := days[key]
		if !seen {
			a = &acc{}
			days[key] = a
			order = append(order, key)
		}
		a.sum += hr.HeartRate
		a.count++
	}

	means := make([]float64, 0, len(order))
	for _, key := range order {
		a := days[key]
		means = append(means, float64(a.sum)/float64(a.count))
	}
	return means
}
