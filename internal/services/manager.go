// Package services wires configuration into the download pipeline.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/garmindl/internal/config"
	"github.com/j-veylop/garmindl/internal/db"
	"github.com/j-veylop/garmindl/internal/fetch"
	"github.com/j-veylop/garmindl/internal/garmin"
	"github.com/j-veylop/garmindl/internal/logger"
	"github.com/j-veylop/garmindl/internal/models"
	"github.com/j-veylop/garmindl/internal/services/archive"
	"github.com/j-veylop/garmindl/internal/services/download"
	"github.com/j-veylop/garmindl/internal/services/remotewrite"
)

// Manager owns the ledger, the publish sinks and the download service.
type Manager struct {
	cfg      *config.Config
	database *db.DB
	download *download.Service
	sinks    []download.Sink
}

// NewManager builds the pipeline from cfg. Optional parts that cannot be set
// up (ledger, sinks) are logged and left out instead of failing.
func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	m := &Manager{cfg: cfg}

	var ledger download.Ledger
	if cfg.DatabasePath != "" {
		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			logger.Warn("run ledger unavailable", "path", cfg.DatabasePath, "error", err)
		} else {
			m.database = database
			ledger = database
		}
	}

	if cfg.S3Bucket != "" {
		uploader, err := archive.NewS3UploaderFromEnv(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			logger.Warn("S3 archive disabled", "bucket", cfg.S3Bucket, "error", err)
		} else {
			m.sinks = append(m.sinks, archive.New(uploader, archive.DefaultPrefix))
		}
	}

	if cfg.RemoteWriteURL != "" {
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		m.sinks = append(m.sinks, remotewrite.New(cfg.RemoteWriteURL, client, time.Local))
	}

	m.download = download.New(m.openSession, download.Options{
		Ledger:    ledger,
		OutputDir: cfg.OutputDir,
		Sinks:     m.sinks,
		Notify:    cfg.Notify,
	})

	return m, nil
}

func (m *Manager) openSession(ctx context.Context) (fetch.API, error) {
	return garmin.NewSession(ctx, garmin.Options{
		TokenStore:  m.cfg.TokenStorePath,
		BaseURL:     m.cfg.APIBaseURL,
		ConsumerURL: m.cfg.OAuthConsumerURL,
		Timeout:     m.cfg.HTTPTimeout,
	})
}

// Download returns the download service.
func (m *Manager) Download() *download.Service {
	return m.download
}

// Sinks returns the names of the configured publish sinks.
func (m *Manager) Sinks() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

// HasLedger reports whether the run ledger is open.
func (m *Manager) HasLedger() bool {
	return m.database != nil
}

// CloseStaleRuns marks runs that have been running for longer than
// db.StaleRunAge as interrupted.
func (m *Manager) CloseStaleRuns(ctx context.Context) (int64, error) {
	if m.database == nil {
		return 0, nil
	}
	return m.database.MarkInterruptedRuns(ctx, time.Now().Add(-db.StaleRunAge))
}

// History returns the most recent runs.
func (m *Manager) History(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if m.database == nil {
		return nil, fmt.Errorf("run ledger not available")
	}
	return m.database.GetRecentRuns(ctx, limit)
}

// Stats returns ledger totals.
func (m *Manager) Stats(ctx context.Context) (*models.LedgerStats, error) {
	if m.database == nil {
		return nil, fmt.Errorf("run ledger not available")
	}
	return m.database.GetLedgerStats(ctx)
}

// Prune keeps only the most recent runs in the ledger and compacts the file
// when anything was removed.
func (m *Manager) Prune(ctx context.Context, keep int) (int64, error) {
	if m.database == nil {
		return 0, fmt.Errorf("run ledger not available")
	}
	n, err := m.database.PruneRuns(ctx, keep)
	if err != nil || n == 0 {
		return n, err
	}
	if err := m.database.Vacuum(ctx); err != nil {
		logger.Warn("ledger compaction failed", "error", err)
	}
	return n, nil
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan download.Event) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Close releases the ledger.
func (m *Manager) Close() error {
	if m.database != nil {
		if err := m.database.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
