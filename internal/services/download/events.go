package download

import "github.com/j-veylop/garmindl/internal/models"

// Event reports orchestrator progress.
type Event struct {
	Report *models.RunReport
	Unit   *models.UnitResult
	RunID  string
	Kind   models.MetricKind
	Type   EventType
	Year   int
	Month  int
	Index  int
	Total  int
}

// EventType defines the type of download event.
type EventType int

const (
	// EventRunStarted is sent once the run has an ID, before the session opens.
	EventRunStarted EventType = iota
	// EventSessionReady is sent once the Garmin session is established.
	EventSessionReady
	// EventUnitStarted is sent before a (kind, month) unit is fetched.
	EventUnitStarted
	// EventUnitFinished carries the outcome of a unit.
	EventUnitFinished
	// EventRunFinished carries the final report. It is always the last event of a run.
	EventRunFinished
)

func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Events returns the progress channel. It is never closed.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}
