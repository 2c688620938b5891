// Package archive copies written CSV files to object storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/j-veylop/garmindl/internal/export"
	"github.com/j-veylop/garmindl/internal/logger"
	"github.com/j-veylop/garmindl/internal/models"
)

// DefaultPrefix is the key prefix archived files are stored under.
const DefaultPrefix = "garmin"

// Uploader stores a stream under a key.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

// Archiver publishes CSV files to an Uploader.
type Archiver struct {
	uploader Uploader
	prefix   string
}

// New creates an Archiver storing files under prefix/<kind>/<filename>.
func New(uploader Uploader, prefix string) *Archiver {
	return &Archiver{uploader: uploader, prefix: prefix}
}

// Name identifies the sink in reports.
func (a *Archiver) Name() string {
	return "s3"
}

// Key returns the object key of a batch's file.
func (a *Archiver) Key(batch models.Batch) string {
	return path.Join(a.prefix, string(batch.Kind), batch.Filename)
}

// Publish uploads the written file of batch.
func (a *Archiver) Publish(ctx context.Context, batch models.Batch, file *export.File) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s for upload: %w", file.Path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close archived file", "path", file.Path, "error", err)
		}
	}()

	key := a.Key(batch)
	if err := a.uploader.Upload(ctx, key, f); err != nil {
		return err
	}
	logger.Debug("archived CSV", "key", key, "bytes", file.Bytes)
	return nil
}
