package gallery

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns the per-session galleries, keyed by session ID. Sessions are
// created on first access and discarded when idle past the TTL.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger

	maxRecords int
	maxDebug   int
	ttl        time.Duration
}

// NewManager builds a session manager. maxRecords/maxDebug of 0 disable the
// corresponding retention cap; ttl of 0 disables idle expiry.
func NewManager(maxRecords, maxDebug int, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		logger:     logger,
		maxRecords: maxRecords,
		maxDebug:   maxDebug,
		ttl:        ttl,
	}
}

// Get returns the session for id, creating it on first access.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s = newSession(m.maxRecords, m.maxDebug)
	m.sessions[id] = s
	m.logger.Debug("session created", zap.String("session_id", id))
	return s
}

// PurgeIdle drops sessions idle longer than the TTL and reports how many
// were removed.
func (m *Manager) PurgeIdle(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for id, s := range m.sessions {
		if s.idle(now) > m.ttl {
			delete(m.sessions, id)
			purged++
		}
	}
	if purged > 0 {
		m.logger.Info("purged idle sessions", zap.Int("count", purged))
	}
	return purged
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
