package performance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerStats(t *testing.T) {
	require := require.New(t)

	tracker := NewTracker(&TrackerConfig{MaxMarkers: 3}, nil)

	for i := 0; i < 4; i++ {
		m := tracker.StartOperation("discount:start_session", "sess")
		m.Complete()
		m.Complete()
	}
	failed := tracker.StartOperation("discount:generate", "sess")
	failed.SetError(errors.New("boom"))
	failed.Complete()

	stats := tracker.Stats()
	require.Equal(2, stats["discount:start_session"].Count)
	require.Equal(1, stats["discount:generate"].Count)
	require.Equal(1, stats["discount:generate"].Failures)
	require.Equal("boom", failed.Error)
}
