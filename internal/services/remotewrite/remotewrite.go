// Package remotewrite pushes downloaded metrics to a Prometheus remote write endpoint.
package remotewrite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"

	"github.com/j-veylop/garmindl/internal/export"
	"github.com/j-veylop/garmindl/internal/logger"
	"github.com/j-veylop/garmindl/internal/models"
)

const (
	heartRateMetric   = "garmin_heart_rate_bpm"
	bodyBatteryPrefix = "garmin_body_battery_"
	jobLabel          = "garmindl"
)

// Client sends samples to a remote write endpoint.
type Client struct {
	client *http.Client
	loc    *time.Location
	url    string
}

// New creates a client. Body Battery dates are anchored to midnight in loc.
func New(url string, httpClient *http.Client, loc *time.Location) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{client: httpClient, loc: loc, url: url}
}

// Name identifies the sink in reports.
func (c *Client) Name() string {
	return "remote-write"
}

// Publish pushes the samples of batch. Batches without samples are skipped.
func (c *Client) Publish(ctx context.Context, batch models.Batch, _ *export.File) error {
	series := Series(batch, c.loc)
	if len(series) == 0 {
		return nil
	}
	if err := c.Write(ctx, series); err != nil {
		return err
	}
	logger.Debug("pushed samples", "file", batch.Filename, "series", len(series))
	return nil
}

// Write sends one snappy-compressed WriteRequest.
func (c *Client) Write(ctx context.Context, timeseries []prompb.TimeSeries) error {
	req := &prompb.WriteRequest{Timeseries: timeseries}
	data, err := req.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	compressed := snappy.Encode(nil, data)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote write failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Series converts a batch into time series, one per metric name.
func Series(batch models.Batch, loc *time.Location) []prompb.TimeSeries {
	switch batch.Kind {
	case models.KindHeartRate:
		return heartRateSeries(batch.Rows)
	case models.KindBodyBattery:
		return bodyBatterySeries(batch.Rows, loc)
	default:
		return nil
	}
}

func heartRateSeries(rows []models.Row) []prompb.TimeSeries {
	var samples []prompb.Sample
	for _, r := range rows {
		hr, ok := r.(models.HeartRateRow)
		if !ok {
			continue
		}
		samples = append(samples, prompb.Sample{
			Value:     float64(hr.HeartRate),
			Timestamp: hr.Timestamp.UnixMilli(),
		})
	}
	if len(samples) == 0 {
		return nil
	}
	return []prompb.TimeSeries{buildTimeSeries(heartRateMetric, samples)}
}

func bodyBatterySeries(rows []models.Row, loc *time.Location) []prompb.TimeSeries {
	fields := []string{"max", "min", "charged", "drained"}
	samples := make(map[string][]prompb.Sample, len(fields))

	for _, r := range rows {
		bb, ok := r.(models.BodyBatteryRow)
		if !ok {
			continue
		}
		day, err := time.ParseInLocation(time.DateOnly, bb.Date, loc)
		if err != nil {
			logger.Warn("skipping body battery day with unparseable date", "date", bb.Date)
			continue
		}
		values := map[string]*float64{"max": bb.Max, "min": bb.Min, "charged": bb.Charged, "drained": bb.Drained}
		for _, name := range fields {
			if v := values[name]; v != nil {
				samples[name] = append(samples[name], prompb.Sample{Value: *v, Timestamp: day.UnixMilli()})
			}
		}
	}

	var series []prompb.TimeSeries
	for _, name := range fields {
		if len(samples[name]) > 0 {
			series = append(series, buildTimeSeries(bodyBatteryPrefix+name, samples[name]))
		}
	}
	return series
}

func buildTimeSeries(metricName string, samples []prompb.Sample) prompb.TimeSeries {
	return prompb.TimeSeries{
		Labels: []prompb.Label{
			{Name: "__name__", Value: metricName},
			{Name: "job", Value: jobLabel},
		},
		Samples: samples,
	}
}
