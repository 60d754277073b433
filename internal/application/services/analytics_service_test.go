package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
)

type memoryEventRepo struct {
	mu      sync.Mutex
	stored  []discount.Event
	fail    error
	release chan struct{}
}

func (m *memoryEventRepo) Store(_ context.Context, e *discount.Event) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.stored = append(m.stored, *e)
	return nil
}

func (m *memoryEventRepo) CountByName(context.Context) (map[discount.EventName]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[discount.EventName]int)
	for _, e := range m.stored {
		counts[e.Name]++
	}
	return counts, nil
}

func TestAnalyticsCloseDrains(t *testing.T) {
	require := require.New(t)
	repo := &memoryEventRepo{}
	svc := NewAnalyticsService(repo, logging.NewNopLogger(), 16)

	for i := 0; i < 10; i++ {
		svc.Track(discount.Event{Name: discount.EventPopupShown, Code: "JSC-1"})
	}
	svc.Track(discount.Event{Name: discount.EventCodeCopied, Code: "JSC-1"})
	svc.Close()
	svc.Close()

	require.Len(repo.stored, 11)
	svc.Track(discount.Event{Name: discount.EventExpired})
	require.Len(repo.stored, 11, "events after close are ignored")

	summary, err := svc.Summary(context.Background())
	require.NoError(err)
	require.Equal(10, summary[discount.EventPopupShown])
	require.Equal(1, summary[discount.EventCodeCopied])
	require.Contains(summary, discount.EventExpired)
	require.Len(summary, len(discount.EventNames))
}

func TestAnalyticsDropsWhenFull(t *testing.T) {
	require := require.New(t)
	repo := &memoryEventRepo{release: make(chan struct{})}
	svc := NewAnalyticsService(repo, logging.NewNopLogger(), 2)

	// the writer blocks on the first event, so at most three are accepted
	for i := 0; i < 10; i++ {
		svc.Track(discount.Event{Name: discount.EventPopupShown})
	}
	require.GreaterOrEqual(svc.Dropped(), int64(7))

	close(repo.release)
	svc.Close()
	require.Equal(int64(10), svc.Dropped()+int64(len(repo.stored)))
}

func TestAnalyticsFailuresAreSwallowed(t *testing.T) {
	require := require.New(t)
	repo := &memoryEventRepo{fail: errors.New("disk full")}
	svc := NewAnalyticsService(repo, logging.NewNopLogger(), 4)

	require.NotPanics(func() {
		svc.Track(discount.Event{Name: discount.EventPopupDismissed})
		svc.Close()
	})
	require.Empty(repo.stored)
}
