// Package app provides the Bubble Tea model that shows download progress.
package app

import (
	"sync"

	"github.com/j-veylop/garmindl/internal/models"
	"github.com/j-veylop/garmindl/internal/services/download"
)

// Phase is the stage a run is in.
type Phase int

const (
	// PhaseStarting is before the session is established.
	PhaseStarting Phase = iota
	// PhaseDownloading is while units are being fetched.
	PhaseDownloading
	// PhaseDone is after the run finished.
	PhaseDone
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseDownloading:
		return "downloading"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// State holds the progress of the current run.
type State struct {
	mu       sync.RWMutex
	runID    string
	current  string
	finished []models.UnitResult
	total    int
	phase    Phase
}

// NewState creates a state for a run of total units.
func NewState(total int) *State {
	return &State{total: total}
}

// Apply folds a progress event into the state. Events of other runs are
// ignored once the run ID is known.
func (s *State) Apply(event download.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runID != "" && event.RunID != s.runID {
		return
	}

	switch event.Type {
	case download.EventRunStarted:
		s.runID = event.RunID
		s.phase = PhaseStarting
		if event.Total > 0 {
			s.total = event.Total
		}
	case download.EventSessionReady:
		s.phase = PhaseDownloading
	case download.EventUnitStarted:
		s.phase = PhaseDownloading
		s.current = models.UnitResult{Kind: event.Kind, Year: event.Year, Month: event.Month}.Label()
	case download.EventUnitFinished:
		if event.Unit != nil {
			s.finished = append(s.finished, *event.Unit)
		}
		s.current = ""
	case download.EventRunFinished:
		s.phase = PhaseDone
		s.current = ""
	}
}

// RunID returns the ID of the run being tracked.
func (s *State) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Current returns the label of the unit being fetched, if any.
func (s *State) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Progress returns the number of finished units and the total.
func (s *State) Progress() (done, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.finished), s.total
}

// Finished returns a copy of the finished units in order.
func (s *State) Finished() []models.UnitResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UnitResult, len(s.finished))
	copy(out, s.finished)
	return out
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}
