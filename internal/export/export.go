// Package export writes metric rows to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/j-veylop/garmindl/internal/models"
)

// File describes a written CSV file.
type File struct {
	Path     string
	Checksum string
	Bytes    int64
	Rows     int
}

// countingWriter counts the bytes passed through to the underlying writer.
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// WriteRows creates or truncates path and writes a header of fields followed
// by one record per row. Only the listed fields are written; a row lacking a
// field gets an empty cell. Every failure is a *models.DataWriteError.
func WriteRows(path string, fields []string, rows []models.Row) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &models.DataWriteError{Path: path, Err: err}
	}

	out, err := Encode(f, fields, rows)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, &models.DataWriteError{Path: path, Err: err}
	}

	out.Path = path
	return out, nil
}

// Encode writes the CSV form of rows to w and reports its size and checksum.
func Encode(w io.Writer, fields []string, rows []models.Row) (*File, error) {
	hash := xxhash.New()
	counter := &countingWriter{}
	writer := csv.NewWriter(io.MultiWriter(w, hash, counter))
	// Records are CRLF terminated.
	writer.UseCRLF = true

	if err := writer.Write(fields); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(fields))
	for _, row := range rows {
		for i, name := range fields {
			// Missing fields stay empty.
			record[i], _ = row.Field(name)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return &File{
		Checksum: fmt.Sprintf("%016x", hash.Sum64()),
		Bytes:    counter.n,
		Rows:     len(rows),
	}, nil
}
