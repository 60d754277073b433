// Package performance provides performance tracking for the conference service.
package performance

import (
	"sync"
	"time"

	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
)

// Tracker keeps a bounded history of completed markers and warns on slow operations
type Tracker struct {
	recent   []Marker
	next     int
	full     bool
	slowOver time.Duration
	logger   *logging.ChanneledLogger
	mu       sync.RWMutex
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers    int           `json:"maxMarkers"`    // Ring size for completed markers
	SlowThreshold time.Duration `json:"slowThreshold"` // Completed markers above this are logged as slow
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:    2000,
		SlowThreshold: 500 * time.Millisecond,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig, logger *logging.ChanneledLogger) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	if config.MaxMarkers <= 0 {
		config.MaxMarkers = DefaultTrackerConfig().MaxMarkers
	}

	return &Tracker{
		recent:   make([]Marker, config.MaxMarkers),
		slowOver: config.SlowThreshold,
		logger:   logger,
	}
}

// StartOperation creates a marker for an operation
func (t *Tracker) StartOperation(operation, sessionID string) *Marker {
	return &Marker{
		Operation: operation,
		SessionID: sessionID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true,
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	t.recent[t.next] = *m
	t.recent[t.next].tracker = nil
	t.next = (t.next + 1) % len(t.recent)
	if t.next == 0 {
		t.full = true
	}
	t.mu.Unlock()

	if t.logger != nil && t.slowOver > 0 && m.Duration > t.slowOver {
		t.logger.Perf().Warn("Slow operation",
			"operation", m.Operation,
			"duration", m.Duration,
			"success", m.Success)
	}
}

// Stats aggregates the retained markers per operation
func (t *Tracker) Stats() map[string]OperationStats {
	if t == nil {
		return map[string]OperationStats{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.next
	if t.full {
		n = len(t.recent)
	}

	totals := make(map[string]time.Duration)
	stats := make(map[string]OperationStats)
	for i := 0; i < n; i++ {
		m := t.recent[i]
		s := stats[m.Operation]
		s.Count++
		if !m.Success {
			s.Failures++
		}
		if m.Duration > s.MaxDuration {
			s.MaxDuration = m.Duration
		}
		totals[m.Operation] += m.Duration
		stats[m.Operation] = s
	}
	for op, s := range stats {
		s.AvgDuration = totals[op] / time.Duration(s.Count)
		stats[op] = s
	}
	return stats
}
