// Package session tracks the per-client conversation state served by the
// API: one history and one last answer per session id.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/vakki/pkg/history"
)

// MaxIDLength bounds client supplied session ids.
const MaxIDLength = 128

// ErrInvalidID is returned for session ids that are too long or contain
// characters outside [A-Za-z0-9_-].
var ErrInvalidID = errors.New("invalid session id")

// Session is one client's conversation.
type Session struct {
	ID      string
	History *history.History

	mu         sync.Mutex
	lastAnswer string
	lastSeen   time.Time
}

// LastAnswer returns the most recent generated answer, without sources.
func (s *Session) LastAnswer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnswer
}

// SetLastAnswer records the most recent generated answer.
func (s *Session) SetLastAnswer(answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAnswer = answer
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager owns every live session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	newHistory func() *history.History
	idle       time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistoryOptions applies opts to every new session's history.
func WithHistoryOptions(opts ...history.Option) Option {
	return func(m *Manager) {
		m.newHistory = func() *history.History { return history.New(opts...) }
	}
}

// WithIdleTimeout expires sessions unused for d. Zero keeps them forever.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idle = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions:   make(map[string]*Session),
		newHistory: func() *history.History { return history.New() },
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the session for id, creating it when unknown. An
// empty id creates a session with a fresh uuid. created reports whether a
// new session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool, err error) {
	if id == "" {
		id = uuid.NewString()
	} else if !ValidID(id) {
		return nil, false, ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s, ok := m.sessions[id]; ok {
		s.touch(now)
		return s, false, nil
	}

	s = &Session{ID: id, History: m.newHistory(), lastSeen: now}
	m.sessions[id] = s
	m.logger.Debug("session created", "session_id", id)
	return s, true, nil
}

// Get returns an existing session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// Delete drops a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle longer than the idle timeout and returns how
// many were dropped.
func (m *Manager) Sweep() int {
	if m.idle <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.idle)
	dropped := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			dropped++
		}
	}

	if dropped > 0 {
		m.logger.Info("expired idle sessions", "count", dropped)
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.idle <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// ValidID reports whether id is an acceptable client supplied session id.
func ValidID(id string) bool {
	if id == "" || len(id) > MaxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
