package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/garmindl/internal/export"
	"github.com/j-veylop/garmindl/internal/fetch"
	"github.com/j-veylop/garmindl/internal/garmin"
	"github.com/j-veylop/garmindl/internal/models"
)

var today = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type fakeAPI struct {
	bbErr    error
	hrErr    error
	bbCalls  int
	hrCalls  int
	hrValues [][]any
}

func (f *fakeAPI) GetBodyBattery(_ context.Context, start, end time.Time) ([]garmin.BodyBatteryDay, error) {
	f.bbCalls++
	if f.bbErr != nil {
		return nil, f.bbErr
	}
	charged := 50.0
	return []garmin.BodyBatteryDay{{Date: start.Format(time.DateOnly), Charged: &charged, Values: [][]any{{1.0, 30.0}, {2.0, 70.0}}}}, nil
}

func (f *fakeAPI) GetHeartRates(_ context.Context, day time.Time) (*garmin.HeartRateDay, error) {
	f.hrCalls++
	if f.hrErr != nil {
		return nil, f.hrErr
	}
	return &garmin.HeartRateDay{Values: f.hrValues}, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	started  []models.RunRecord
	finished []models.RunRecord
	units    []models.UnitRecord
	err      error
}

func (l *fakeLedger) InsertRun(_ context.Context, run models.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, run)
	return l.err
}

func (l *fakeLedger) FinishRun(_ context.Context, run models.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, run)
	return l.err
}

func (l *fakeLedger) InsertUnit(_ context.Context, unit models.UnitRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.units = append(l.units, unit)
	return l.err
}

func (l *fakeLedger) LastUnit(_ context.Context, filename, excludeRunID string) (*models.UnitRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	for i := len(l.units) - 1; i >= 0; i-- {
		u := l.units[i]
		if u.Filename == filename && u.RunID != excludeRunID && (u.Status == models.UnitOK || u.Status == models.UnitEmpty) {
			return &u, nil
		}
	}
	return nil, nil
}

type fakeSink struct {
	err       error
	published []string
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Publish(_ context.Context, batch models.Batch, file *export.File) error {
	s.published = append(s.published, batch.Filename+"@"+filepath.Base(file.Path))
	return s.err
}

type harness struct {
	api      *fakeAPI
	ledger   *fakeLedger
	sessions int
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		api:    &fakeAPI{hrValues: [][]any{{1714550400000.0, 60.0}}},
		ledger: &fakeLedger{},
		dir:    t.TempDir(),
	}
}

func (h *harness) service(opts Options) *Service {
	opts.Ledger = h.ledger
	opts.OutputDir = h.dir
	opts.Now = func() time.Time { return today }
	return New(func(context.Context) (fetch.API, error) {
		h.sessions++
		return h.api, nil
	}, opts)
}

func TestRun_OneSessionTwoFiles(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{5}, Kinds: models.AllKinds})
	require.NoError(t, err)

	assert.Equal(t, 1, h.sessions)
	assert.Equal(t, 1, h.api.bbCalls)
	assert.Equal(t, 15, h.api.hrCalls)

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"bb202405.csv", "hr202405.csv"}, names)

	require.Len(t, report.Units, 2)
	assert.Equal(t, models.KindBodyBattery, report.Units[0].Kind)
	assert.Equal(t, models.KindHeartRate, report.Units[1].Kind)
	assert.Equal(t, "ok", report.Status())
	assert.Equal(t, 15, report.Units[1].Rows)
	assert.Equal(t, []float64{60}, report.Units[1].DailyMeans)
	assert.NotEmpty(t, report.ID)

	bb, err := os.ReadFile(filepath.Join(h.dir, "bb202405.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date,charged,drained,max,min\r\n2024-05-01,50,,70,30\r\n", string(bb))
}

func TestRun_ComparesWithPreviousDownload(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})
	req := models.Request{Year: 2024, Months: []int{5}, Kinds: []models.MetricKind{models.KindHeartRate}}

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeNew, first.Units[0].Change)

	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeSame, second.Units[0].Change)

	h.api.hrValues = [][]any{{1714550400000.0, 75.0}}
	third, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeUpdated, third.Units[0].Change)
}

func TestRun_KindAndMonthOrder(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})

	report, err := svc.Run(context.Background(), models.Request{
		Year:   2024,
		Months: []int{3, 1},
		Kinds:  []models.MetricKind{models.KindHeartRate, models.KindBodyBattery},
	})
	require.NoError(t, err)

	var labels []string
	for _, u := range report.Units {
		labels = append(labels, u.Label())
	}
	assert.Equal(t, []string{"hr 2024-03", "hr 2024-01", "bb 2024-03", "bb 2024-01"}, labels)
}

func TestRun_SessionError(t *testing.T) {
	h := newHarness(t)
	svc := New(func(context.Context) (fetch.API, error) {
		return nil, errors.New("token expired")
	}, Options{Ledger: h.ledger, OutputDir: h.dir})

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{5}, Kinds: models.AllKinds})

	var sessionErr *models.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Empty(t, report.Units)
	assert.Equal(t, "failed", report.Status())
	assert.Zero(t, h.api.bbCalls+h.api.hrCalls)

	entries, _ := os.ReadDir(h.dir)
	assert.Empty(t, entries)

	require.Len(t, h.ledger.finished, 1)
	assert.Equal(t, "failed", h.ledger.finished[0].Status)
}

func TestRun_ContinuesPastFailedUnit(t *testing.T) {
	h := newHarness(t)
	h.api.bbErr = errors.New("boom")
	svc := h.service(Options{})

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{4, 5}, Kinds: models.AllKinds})
	require.Error(t, err)

	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.KindBodyBattery, fetchErr.Kind)

	require.Len(t, report.Units, 4)
	assert.Equal(t, 2, report.Count(models.UnitFailed))
	assert.Equal(t, 2, report.Count(models.UnitOK))
	assert.Equal(t, "partial", report.Status())
	assert.Len(t, h.ledger.units, 4)

	_, statErr := os.Stat(filepath.Join(h.dir, "hr202405.csv"))
	assert.NoError(t, statErr)
}

func TestRun_FailFast(t *testing.T) {
	h := newHarness(t)
	h.api.bbErr = errors.New("boom")
	svc := h.service(Options{FailFast: true})

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{4, 5}, Kinds: models.AllKinds})
	require.Error(t, err)

	require.Len(t, report.Units, 4)
	assert.Equal(t, models.UnitFailed, report.Units[0].Status)
	for _, u := range report.Units[1:] {
		assert.Equal(t, models.UnitSkipped, u.Status, u.Label())
	}
	assert.Equal(t, 1, h.api.bbCalls)
	assert.Zero(t, h.api.hrCalls)
	assert.Equal(t, "failed", report.Status())
}

func TestRun_WriteError(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})
	svc.SetOutputDir(filepath.Join(h.dir, "missing"))

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{5}, Kinds: []models.MetricKind{models.KindBodyBattery}})

	var writeErr *models.DataWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, models.UnitFailed, report.Units[0].Status)
}

func TestRun_FutureMonthIsEmpty(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{6}, Kinds: models.AllKinds})
	require.NoError(t, err)

	assert.Zero(t, h.api.bbCalls+h.api.hrCalls)
	assert.Equal(t, 2, report.Count(models.UnitEmpty))

	hr, err := os.ReadFile(filepath.Join(h.dir, "hr202406.csv"))
	require.NoError(t, err)
	assert.Equal(t, "timestamp,heartrate\r\n", string(hr))
}

func TestRun_SinkFailureIsWarning(t *testing.T) {
	h := newHarness(t)
	good := &fakeSink{}
	bad := &fakeSink{err: errors.New("bucket missing")}
	svc := h.service(Options{Sinks: []Sink{good, bad}})

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{5}, Kinds: []models.MetricKind{models.KindHeartRate}})
	require.NoError(t, err)

	assert.Equal(t, []string{"hr202405.csv@hr202405.csv"}, good.published)
	assert.Equal(t, models.UnitOK, report.Units[0].Status)
	require.Len(t, report.Units[0].Warnings, 1)
	assert.True(t, strings.HasPrefix(report.Units[0].Warnings[0], "fake: bucket missing"))
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx, models.Request{Year: 2024, Months: []int{4, 5}, Kinds: []models.MetricKind{models.KindBodyBattery}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, report.Count(models.UnitSkipped))
	assert.Zero(t, h.api.bbCalls)
}

func TestRun_InvalidRequest(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})

	report, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{13}, Kinds: models.AllKinds})
	var usageErr *models.UsageError
	require.True(t, errors.As(err, &usageErr))
	assert.Nil(t, report)
	assert.Zero(t, h.sessions)
}

func TestRun_LedgerFailureDoesNotFailRun(t *testing.T) {
	h := newHarness(t)
	h.ledger.err = errors.New("disk full")
	svc := h.service(Options{})

	_, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{5}, Kinds: []models.MetricKind{models.KindBodyBattery}})
	assert.NoError(t, err)
	assert.Len(t, h.ledger.started, 1)
	assert.Len(t, h.ledger.units, 1)
}

func TestRun_Events(t *testing.T) {
	h := newHarness(t)
	svc := h.service(Options{})

	_, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{5}, Kinds: []models.MetricKind{models.KindBodyBattery}})
	require.NoError(t, err)

	var types []EventType
	for len(svc.Events()) > 0 {
		types = append(types, (<-svc.Events()).Type)
	}
	assert.Equal(t, []EventType{EventRunStarted, EventSessionReady, EventUnitStarted, EventUnitFinished, EventRunFinished}, types)
}

func TestRun_Notify(t *testing.T) {
	var title, body string
	original := notifyFunc
	notifyFunc = func(gotTitle, gotBody string, _ any) error {
		title, body = gotTitle, gotBody
		return nil
	}
	defer func() { notifyFunc = original }()

	h := newHarness(t)
	svc := h.service(Options{Notify: true})

	_, err := svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{5}, Kinds: models.AllKinds})
	require.NoError(t, err)
	assert.Equal(t, "garmindl: run ok", title)
	assert.Equal(t, "2 files written, 0 failed", body)

	h.api.hrErr = errors.New("status 500")
	_, err = svc.Run(context.Background(), models.Request{Year: 2024, Months: []int{4, 5}, Kinds: models.AllKinds})
	require.Error(t, err)
	assert.Equal(t, "garmindl: run partial", title)
	assert.Equal(t, "2 files written, 2 failed: hr 2024-04, hr 2024-05", body)
}

func TestSendEvent_DropsOldestWhenFull(t *testing.T) {
	svc := New(nil, Options{})
	for i := 0; i < cap(svc.eventChan)+5; i++ {
		svc.sendEvent(Event{Index: i})
	}
	first := <-svc.Events()
	assert.Equal(t, 5, first.Index)
}
