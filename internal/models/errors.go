package models

import "fmt"

// SessionError reports that no authenticated session could be established.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// FetchError reports a failed remote metric call for one unit of work.
type FetchError struct {
	Err   error
	Kind  MetricKind
	Year  int
	Month int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %d-%02d: %v", e.Kind, e.Year, e.Month, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DataWriteError reports that a CSV file could not be written.
type DataWriteError struct {
	Err  error
	Path string
}

func (e *DataWriteError) Error() string {
	return fmt.Sprintf("error writing CSV file %s: %v", e.Path, e.Err)
}

func (e *DataWriteError) Unwrap() error { return e.Err }

// UsageError reports invalid command line input.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// NewUsageError formats a UsageError.
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}
