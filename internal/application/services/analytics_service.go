package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
)

const analyticsWriteTimeout = 5 * time.Second

// AnalyticsService is the fire-and-forget sink for popup events. Track never
// blocks; a full buffer drops the event with a warning and a write failure is
// only logged.
type AnalyticsService struct {
	repo    discount.EventRepository
	logger  *logging.ChanneledLogger
	events  chan discount.Event
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

// NewAnalyticsService starts the writer goroutine.
func NewAnalyticsService(repo discount.EventRepository, logger *logging.ChanneledLogger, bufferSize int) *AnalyticsService {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	s := &AnalyticsService{
		repo:   repo,
		logger: logger,
		events: make(chan discount.Event, bufferSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Track enqueues one event.
func (s *AnalyticsService) Track(event discount.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
		s.logger.Analytics().Warn("Analytics buffer full, dropping event",
			"name", event.Name, "code", event.Code)
	}
}

// Dropped reports how many events were discarded on a full buffer.
func (s *AnalyticsService) Dropped() int64 {
	return s.dropped.Load()
}

func (s *AnalyticsService) run() {
	defer close(s.done)
	for event := range s.events {
		s.write(event)
	}
}

func (s *AnalyticsService) write(event discount.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Analytics().Error("Analytics writer panicked", "name", event.Name, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
	defer cancel()

	if err := s.repo.Store(ctx, &event); err != nil {
		s.logger.Analytics().Error("Failed to persist analytics event",
			"name", event.Name, "code", event.Code, "error", err.Error())
		return
	}
	s.logger.Analytics().Debug("Analytics event recorded", "name", event.Name, "code", event.Code)
}

// Close stops accepting events and waits until the buffer is drained.
func (s *AnalyticsService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	<-s.done
}

// Summary returns the count for every known event name, zero included.
func (s *AnalyticsService) Summary(ctx context.Context) (map[discount.EventName]int, error) {
	counts, err := s.repo.CountByName(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[discount.EventName]int, len(discount.EventNames))
	for _, name := range discount.EventNames {
		out[name] = counts[name]
	}
	return out, nil
}
