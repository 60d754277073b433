package cleanup

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zurichjs/conference-go/internal/infrastructure/caching/stores"
)

type fakeCache struct {
	mu      sync.Mutex
	calls   int
	idle    time.Duration
	evicted int
}

func (f *fakeCache) EvictIdle(idle time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.idle = idle
	return f.evicted
}

func (f *fakeCache) Stats() stores.SessionStats {
	return stores.SessionStats{Active: 3, Oldest: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)}
}

func (f *fakeCache) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunOnceUsesIdleTimeout(t *testing.T) {
	require := require.New(t)

	cache := &fakeCache{evicted: 2}
	w := NewWorker(cache, &Config{CleanupInterval: time.Minute, IdleTimeout: 2 * time.Hour}, nil)

	require.Equal(2, w.RunOnce())
	require.Equal(2*time.Hour, cache.idle)
}

func TestVerboseRunPrintsReport(t *testing.T) {
	require := require.New(t)

	var out bytes.Buffer
	cache := &fakeCache{evicted: 1}
	w := NewWorker(cache, &Config{CleanupInterval: time.Minute, IdleTimeout: time.Hour, VerboseReporting: true}, nil)
	w.reporter = NewReporter(&out)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	w.RunOnce()
	require.Contains(out.String(), "PERIODIC SESSION CLEANUP")
	require.Contains(out.String(), "sessions:")
	require.Contains(out.String(), "1h0m0s")
	require.Contains(out.String(), "1 sessions evicted")
}

func TestStartStopsOnCancel(t *testing.T) {
	require := require.New(t)

	cache := &fakeCache{}
	w := NewWorker(cache, &Config{CleanupInterval: 5 * time.Millisecond, IdleTimeout: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(func() bool { return cache.Calls() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
