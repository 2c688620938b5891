// Package download orchestrates a run: one session, then every (kind, month)
// unit fetched, written and published in order.
package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/google/uuid"

	"github.com/j-veylop/garmindl/internal/export"
	"github.com/j-veylop/garmindl/internal/fetch"
	"github.com/j-veylop/garmindl/internal/logger"
	"github.com/j-veylop/garmindl/internal/models"
)

// SessionFunc opens an authenticated session.
type SessionFunc func(ctx context.Context) (fetch.API, error)

// Ledger records runs and their units.
type Ledger interface {
	InsertRun(ctx context.Context, run models.RunRecord) error
	FinishRun(ctx context.Context, run models.RunRecord) error
	InsertUnit(ctx context.Context, unit models.UnitRecord) error
	LastUnit(ctx context.Context, filename, excludeRunID string) (*models.UnitRecord, error)
}

// Sink receives every written file.
type Sink interface {
	Name() string
	Publish(ctx context.Context, batch models.Batch, file *export.File) error
}

// Options configures a Service.
type Options struct {
	Ledger    Ledger
	Now       func() time.Time
	OutputDir string
	Sinks     []Sink
	FailFast  bool
	Notify    bool
}

// notifyFunc is swapped in tests.
var notifyFunc = beeep.Notify

// Service runs downloads.
type Service struct {
	newSession SessionFunc
	ledger     Ledger
	now        func() time.Time
	eventChan  chan Event
	outputDir  string
	sinks      []Sink
	failFast   bool
	notify     bool
}

// New creates a download service.
func New(newSession SessionFunc, opts Options) *Service {
	s := &Service{
		newSession: newSession,
		ledger:     opts.Ledger,
		now:        opts.Now,
		eventChan:  make(chan Event, 100),
		outputDir:  opts.OutputDir,
		sinks:      opts.Sinks,
		failFast:   opts.FailFast,
		notify:     opts.Notify,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.outputDir == "" {
		s.outputDir = "."
	}
	return s
}

// SetFailFast toggles aborting at the first failed unit.
func (s *Service) SetFailFast(v bool) { s.failFast = v }

// SetNotify toggles the desktop notification at the end of a run.
func (s *Service) SetNotify(v bool) { s.notify = v }

// SetOutputDir changes where CSV files are written.
func (s *Service) SetOutputDir(dir string) {
	if dir != "" {
		s.outputDir = dir
	}
}

// Run downloads every unit of req. The report is returned even when the run
// fails; the error joins every unit failure, or is the *models.SessionError
// that prevented any fetch.
func (s *Service) Run(ctx context.Context, req models.Request) (*models.RunReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report := &models.RunReport{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
		Request:   req,
	}
	total := req.UnitCount()
	s.record(func() error { return s.ledger.InsertRun(ctx, report.Record()) })
	s.sendEvent(Event{Type: EventRunStarted, RunID: report.ID, Total: total})
	logger.Info("run started", "run_id", report.ID, "year", req.Year, "months", models.MonthSpan(req.Months), "kinds", models.JoinKinds(req.Kinds))

	api, err := s.newSession(ctx)
	if err != nil {
		report.Err = &models.SessionError{Err: err}
		return s.finish(report), report.Err
	}
	s.sendEvent(Event{Type: EventSessionReady, RunID: report.ID, Total: total})

	today := s.now()
	var errs []error
	aborted := false

	for _, kind := range req.Kinds {
		for _, month := range req.Months {
			index := len(report.Units)

			var unit models.UnitResult
			if aborted {
				unit = models.UnitResult{Kind: kind, Year: req.Year, Month: month, Status: models.UnitSkipped}
			} else if err := ctx.Err(); err != nil {
				aborted = true
				errs = append(errs, err)
				unit = models.UnitResult{Kind: kind, Year: req.Year, Month: month, Status: models.UnitSkipped}
			} else {
				s.sendEvent(Event{Type: EventUnitStarted, RunID: report.ID, Kind: kind, Year: req.Year, Month: month, Index: index, Total: total})
				unit = s.runUnit(ctx, api, report.ID, kind, req.Year, month, today)
				if unit.Err != nil {
					errs = append(errs, unit.Err)
					aborted = s.failFast
				}
			}

			report.Units = append(report.Units, unit)
			s.record(func() error { return s.ledger.InsertUnit(ctx, unit.Record(report.ID)) })
			s.sendEvent(Event{Type: EventUnitFinished, RunID: report.ID, Unit: &unit, Kind: kind, Year: req.Year, Month: month, Index: index, Total: total})
		}
	}

	report.Err = errors.Join(errs...)
	return s.finish(report), report.Err
}

// runUnit fetches, writes and publishes one (kind, month) unit.
func (s *Service) runUnit(ctx context.Context, api fetch.API, runID string, kind models.MetricKind, year, month int, today time.Time) models.UnitResult {
	start := s.now()
	unit := models.UnitResult{Kind: kind, Year: year, Month: month}

	batch, err := fetch.Fetch(ctx, api, kind, year, month, today)
	if err != nil {
		unit.Status = models.UnitFailed
		unit.Err = &models.FetchError{Err: err, Kind: kind, Year: year, Month: month}
		logger.Error("fetch failed", "unit", unit.Label(), "error", err)
		return s.finishUnit(unit, start)
	}

	path := filepath.Join(s.outputDir, batch.Filename)
	file, err := export.WriteRows(path, kind.Fields(), batch.Rows)
	if err != nil {
		unit.Status = models.UnitFailed
		unit.Err = err
		unit.Path = path
		logger.Error("write failed", "unit", unit.Label(), "error", err)
		return s.finishUnit(unit, start)
	}

	unit.Path = file.Path
	unit.Rows = file.Rows
	unit.Bytes = file.Bytes
	unit.Checksum = file.Checksum
	unit.Status = models.UnitOK
	if file.Rows == 0 {
		unit.Status = models.UnitEmpty
	}
	if kind == models.KindHeartRate {
		unit.DailyMeans = fetch.DailyMeans(batch.Rows)
	}
	unit.Change = s.compare(ctx, runID, batch.Filename, file.Checksum)

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, batch, file); err != nil {
			warning := fmt.Sprintf("%s: %v", sink.Name(), err)
			unit.Warnings = append(unit.Warnings, warning)
			logger.Warn("publish failed", "unit", unit.Label(), "sink", sink.Name(), "error", err)
		}
	}

	logger.Info("unit written", "unit", unit.Label(), "path", unit.Path, "rows", unit.Rows)
	return s.finishUnit(unit, start)
}

func (s *Service) finishUnit(unit models.UnitResult, start time.Time) models.UnitResult {
	unit.Duration = s.now().Sub(start)
	return unit
}

func (s *Service) finish(report *models.RunReport) *models.RunReport {
	report.FinishedAt = s.now()
	// The caller's context may already be cancelled; the ledger still gets the outcome.
	s.record(func() error { return s.ledger.FinishRun(context.Background(), report.Record()) })

	status := report.Status()
	logger.Info("run finished", "run_id", report.ID, "status", status,
		"written", report.Count(models.UnitOK)+report.Count(models.UnitEmpty),
		"failed", report.Count(models.UnitFailed))

	if s.notify {
		title := fmt.Sprintf("garmindl: run %s", status)
		body := fmt.Sprintf("%d files written, %d failed",
			report.Count(models.UnitOK)+report.Count(models.UnitEmpty), report.Count(models.UnitFailed))
		if failed := report.Failed(); len(failed) > 0 {
			labels := make([]string, len(failed))
			for i, u := range failed {
				labels[i] = u.Label()
			}
			body += ": " + strings.Join(labels, ", ")
		}
		if report.Err != nil && len(report.Units) == 0 {
			body = report.Err.Error()
		}
		if err := notifyFunc(title, body, ""); err != nil {
			logger.Debug("notification failed", "error", err)
		}
	}

	s.sendEvent(Event{Type: EventRunFinished, RunID: report.ID, Report: report, Total: report.Request.UnitCount()})
	return report
}

// compare classifies the written file against its previous download.
func (s *Service) compare(ctx context.Context, runID, filename, checksum string) models.UnitChange {
	if s.ledger == nil {
		return models.ChangeUnknown
	}
	prev, err := s.ledger.LastUnit(ctx, filename, runID)
	if err != nil {
		logger.Warn("run ledger lookup failed", "filename", filename, "error", err)
		return models.ChangeUnknown
	}
	return models.CompareChecksum(prev, checksum)
}

// record runs a ledger write. Ledger failures never fail a run.
func (s *Service) record(fn func() error) {
	if s.ledger == nil {
		return
	}
	if err := fn(); err != nil {
		logger.Warn("run ledger update failed", "error", err)
	}
}
