// Package fetch turns Garmin API responses into CSV rows, one month at a time.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/j-veylop/garmindl/internal/calendar"
	"github.com/j-veylop/garmindl/internal/garmin"
	"github.com/j-veylop/garmindl/internal/models"
)

// BodyBatteryAPI is the ranged Body Battery query.
type BodyBatteryAPI interface {
	GetBodyBattery(ctx context.Context, start, end time.Time) ([]garmin.BodyBatteryDay, error)
}

// HeartRateAPI is the single-day heart rate query.
type HeartRateAPI interface {
	GetHeartRates(ctx context.Context, day time.Time) (*garmin.HeartRateDay, error)
}

// API is everything the fetchers need from a session.
type API interface {
	BodyBatteryAPI
	HeartRateAPI
}

// Fetch dispatches to the fetcher of kind.
func Fetch(ctx context.Context, api API, kind models.MetricKind, year, month int, today time.Time) (models.Batch, error) {
	switch kind {
	case models.KindBodyBattery:
		return FetchBodyBattery(ctx, api, year, month, today)
	case models.KindHeartRate:
		return FetchHeartRate(ctx, api, year, month, today)
	default:
		return models.Batch{}, fmt.Errorf("unknown metric kind %q", kind)
	}
}

// FetchBodyBattery issues one ranged call covering the month up to today and
// returns one row per reported day.
func FetchBodyBattery(ctx context.Context, api BodyBatteryAPI, year, month int, today time.Time) (models.Batch, error) {
	batch := newBatch(models.KindBodyBattery, year, month)

	days := calendar.DaysInMonth(month, year, today)
	if len(days) == 0 {
		return batch, nil
	}

	reports, err := api.GetBodyBattery(ctx, days[0], days[len(days)-1])
	if err != nil {
		return batch, err
	}

	batch.Rows = make([]models.Row, 0, len(reports))
	for _, day := range reports {
		maxV, minV := sampleBounds(day.Values)
		batch.Rows = append(batch.Rows, models.BodyBatteryRow{
			Date:    day.Date,
			Charged: day.Charged,
			Drained: day.Drained,
			Max:     maxV,
			Min:     minV,
		})
	}
	return batch, nil
}

// FetchHeartRate issues one call per day of the month up to today. Readings
// keep the API order within a day and days are visited in ascending order.
func FetchHeartRate(ctx context.Context, api HeartRateAPI, year, month int, today time.Time) (models.Batch, error) {
	batch := newBatch(models.KindHeartRate, year, month)
	loc := today.Location()

	for _, day := range calendar.DaysInMonth(month, year, today) {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		hr, err := api.GetHeartRates(ctx, day)
		if err != nil {
			return batch, err
		}
		if hr == nil {
			continue
		}

		for _, pair := range hr.Values {
			row, ok := heartRateRow(pair, loc)
			if !ok {
				continue
			}
			batch.Rows = append(batch.Rows, row)
		}
	}
	return batch, nil
}

func newBatch(kind models.MetricKind, year, month int) models.Batch {
	return models.Batch{
		Kind:     kind,
		Filename: kind.Filename(year, month),
		Year:     year,
		Month:    month,
	}
}

// sampleBounds returns the greatest and least numeric value among the second
// members of [timestamp, value] pairs. Both are nil without numeric values.
func sampleBounds(pairs [][]any) (maxV, minV *float64) {
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		v, ok := number(pair[1])
		if !ok {
			continue
		}
		if maxV == nil || v > *maxV {
			maxV = &v
		}
		if minV == nil || v < *minV {
			minV = &v
		}
	}
	return maxV, minV
}

func heartRateRow(pair []any, loc *time.Location) (models.HeartRateRow, bool) {
	if len(pair) < 2 {
		return models.HeartRateRow{}, false
	}
	millis, ok := number(pair[0])
	if !ok {
		return models.HeartRateRow{}, false
	}
	bpm, ok := number(pair[1])
	if !ok {
		return models.HeartRateRow{}, false
	}
	return models.HeartRateRow{
		Timestamp: time.Unix(int64(millis)/1000, 0).In(loc),
		HeartRate: int(bpm),
	}, true
}

// number accepts the numeric shapes encoding/json and hand-built fixtures produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
