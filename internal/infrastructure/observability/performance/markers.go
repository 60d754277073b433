// Package performance provides performance markers for request and engine
// operations of the conference service.
package performance

import (
	"time"
)

// Marker represents a single performance measurement for an operation
type Marker struct {
	Operation string         `json:"operation"`       // e.g. "discount:start_session", "discount:generate"
	SessionID string         `json:"sessionId"`       // Popup session, empty for system operations
	StartTime time.Time      `json:"startTime"`       // When the operation started
	EndTime   time.Time      `json:"endTime"`         // When the operation completed
	Duration  time.Duration  `json:"duration"`        // Total operation duration
	Success   bool           `json:"success"`         // Whether the operation completed successfully
	Error     string         `json:"error,omitempty"` // Error message if operation failed
	Metadata  map[string]any `json:"metadata"`        // Additional operation-specific data
	Completed bool           `json:"completed"`       // Whether Complete() has been called

	tracker *Tracker
}

// Complete marks the operation as finished and hands it to the tracker
func (m *Marker) Complete() {
	if m.Completed {
		return
	}

	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true

	if m.tracker != nil {
		m.tracker.record(m)
	}
}

// SetSuccess marks the operation as successful or failed
func (m *Marker) SetSuccess(success bool) {
	m.Success = success
}

// SetError sets an error message and marks the operation as failed
func (m *Marker) SetError(err error) {
	if err != nil {
		m.Error = err.Error()
		m.Success = false
	}
}

// AddMetadata adds key-value metadata to the marker
func (m *Marker) AddMetadata(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// OperationStats aggregates completed markers of one operation
type OperationStats struct {
	Count       int           `json:"count"`
	Failures    int           `json:"failures"`
	AvgDuration time.Duration `json:"avgDuration"`
	MaxDuration time.Duration `json:"maxDuration"`
}
