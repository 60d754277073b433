// Package cleanup provides background worker
package cleanup

import (
	"context"
	"time"

	"github.com/zurichjs/conference-go/internal/infrastructure/caching/stores"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
)

// SessionCache is what the worker needs from the popup session store.
type SessionCache interface {
	EvictIdle(idle time.Duration) int
	Stats() stores.SessionStats
}

// Worker evicts popup sessions that have gone idle.
type Worker struct {
	cache    SessionCache
	config   *Config
	logger   *logging.ChanneledLogger
	reporter *Reporter
	now      func() time.Time
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache SessionCache, config *Config, logger *logging.ChanneledLogger) *Worker {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Worker{
		cache:    cache,
		config:   config,
		logger:   logger,
		reporter: NewReporter(nil),
		now:      time.Now,
	}
}

// Start begins the cleanup worker routine, using the configured interval.
// It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.Cache().Info("Session cleanup worker started",
		"interval", w.config.CleanupInterval, "idleTimeout", w.config.IdleTimeout, "verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.Cache().Info("Session cleanup worker stopping")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single eviction pass and returns the number evicted.
func (w *Worker) RunOnce() int {
	start := w.now()

	if w.config.VerboseReporting {
		w.reporter.LogStage("PERIODIC SESSION CLEANUP")
		w.reporter.Print(w.reporter.SessionReport(w.cache.Stats(), start))
	}

	evicted := w.cache.EvictIdle(w.config.IdleTimeout)

	duration := w.now().Sub(start)
	if evicted > 0 {
		w.logger.Cache().Info("Session cleanup finished", "evicted", evicted, "duration", duration)
		if w.config.VerboseReporting {
			w.reporter.LogSuccess("Session cleanup finished: %d sessions evicted in %v", evicted, duration)
		}
	} else if w.config.VerboseReporting {
		w.reporter.LogInfo("Session cleanup completed - no idle sessions found (%v)", duration)
	}
	return evicted
}
