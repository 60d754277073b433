// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
)

// Engine is the part of a session engine the store needs for eviction.
type Engine interface {
	Close()
	// Busy reports pending work that eviction would cut short.
	Busy() bool
}

// PopupSession pairs a session's engine with the cookie mirror it writes to.
type PopupSession[E Engine] struct {
	ID           string
	Engine       E
	Jar          *cookies.Jar
	CreatedAt    time.Time
	LastAccessed time.Time
}

// SessionStats is a point-in-time view used by the cleanup reporter.
type SessionStats struct {
	Active int
	Oldest time.Time
}

// SessionsStore keeps live popup sessions keyed by session id.
type SessionsStore[E Engine] struct {
	mu       sync.RWMutex
	sessions map[string]*PopupSession[E]
	now      func() time.Time
	logger   *logging.ChanneledLogger
}

// NewSessionsStore creates an empty store. now defaults to time.Now.
func NewSessionsStore[E Engine](logger *logging.ChanneledLogger, now func() time.Time) *SessionsStore[E] {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if now == nil {
		now = time.Now
	}
	logger.Cache().Info("Initializing popup sessions store")
	return &SessionsStore[E]{
		sessions: make(map[string]*PopupSession[E]),
		now:      now,
		logger:   logger,
	}
}

// Get returns the session and refreshes its last access time.
func (ss *SessionsStore[E]) Get(id string) (*PopupSession[E], bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.sessions[id]
	if !ok {
		ss.logger.Cache().Debug("Cache operation", "operation", "get", "type", "popup_session", "sessionId", logging.MaskSessionID(id), "hit", false)
		return nil, false
	}
	s.LastAccessed = ss.now()
	return s, true
}

// GetOrCreate returns the existing session for id or stores the one built by
// create. create runs under the store lock and must not call back into it.
func (ss *SessionsStore[E]) GetOrCreate(id string, create func() (E, *cookies.Jar)) (*PopupSession[E], bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	if s, ok := ss.sessions[id]; ok {
		s.LastAccessed = now
		return s, false
	}

	engine, jar := create()
	s := &PopupSession[E]{
		ID:           id,
		Engine:       engine,
		Jar:          jar,
		CreatedAt:    now,
		LastAccessed: now,
	}
	ss.sessions[id] = s
	ss.logger.Cache().Debug("Cache operation", "operation", "create", "type", "popup_session", "sessionId", logging.MaskSessionID(id), "active", len(ss.sessions))
	return s, true
}

// Touch marks the session as used without returning it.
func (ss *SessionsStore[E]) Touch(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.sessions[id]; ok {
		s.LastAccessed = ss.now()
	}
}

// Delete removes the session and closes its engine.
func (ss *SessionsStore[E]) Delete(id string) bool {
	ss.mu.Lock()
	s, ok := ss.sessions[id]
	delete(ss.sessions, id)
	ss.mu.Unlock()

	if ok {
		s.Engine.Close()
	}
	return ok
}

func (ss *SessionsStore[E]) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// EvictIdle closes and removes every session untouched for longer than idle
// whose engine is not busy. It returns the number evicted.
func (ss *SessionsStore[E]) EvictIdle(idle time.Duration) int {
	cutoff := ss.now().Add(-idle)

	ss.mu.Lock()
	var expired []*PopupSession[E]
	kept := 0
	for id, s := range ss.sessions {
		if !s.LastAccessed.Before(cutoff) {
			continue
		}
		if s.Engine.Busy() {
			kept++
			continue
		}
		expired = append(expired, s)
		delete(ss.sessions, id)
	}
	remaining := len(ss.sessions)
	ss.mu.Unlock()

	if kept > 0 {
		ss.logger.Cache().Debug("Idle popup sessions kept for pending work", "kept", kept)
	}

	// Close outside the lock: engine Close stops timers whose callbacks may
	// be waiting on the engine mutex.
	for _, s := range expired {
		s.Engine.Close()
	}
	if len(expired) > 0 {
		ss.logger.Cache().Info("Evicted idle popup sessions", "evicted", len(expired), "remaining", remaining, "idleTimeout", idle)
	}
	return len(expired)
}

// CloseAll closes and removes every session. Used on shutdown.
func (ss *SessionsStore[E]) CloseAll() int {
	ss.mu.Lock()
	all := make([]*PopupSession[E], 0, len(ss.sessions))
	for _, s := range ss.sessions {
		all = append(all, s)
	}
	ss.sessions = make(map[string]*PopupSession[E])
	ss.mu.Unlock()

	for _, s := range all {
		s.Engine.Close()
	}
	return len(all)
}

// Stats reports the active session count and the oldest last access.
func (ss *SessionsStore[E]) Stats() SessionStats {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	stats := SessionStats{Active: len(ss.sessions)}
	for _, s := range ss.sessions {
		if stats.Oldest.IsZero() || s.LastAccessed.Before(stats.Oldest) {
			stats.Oldest = s.LastAccessed
		}
	}
	return stats
}
