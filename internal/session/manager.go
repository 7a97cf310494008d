package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/jobpilot/internal/resume"
	"github.com/kalambet/jobpilot/internal/storage"
)

// ErrNotFound is returned for unknown or closed session IDs.
var ErrNotFound = errors.New("session not found")

// Store defines the persistence the Manager needs.
// Implemented by storage.Store.
type Store interface {
	CreateSession(sess storage.Session) error
	GetSession(id string) (storage.Session, error)
	DeleteSession(id string) error
	SaveInsights(sessionID, resumeID string, in *resume.Insights) error
	GetInsights(sessionID string) (*resume.Insights, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager owns live sessions. Sessions not in memory are rehydrated from the
// store on Get, so a restarted server keeps serving existing IDs.
type Manager struct {
	store Store
	clock Clock

	mu       sync.RWMutex
	sessions map[string]*Session

	// replaceMu keeps the persisted and in-memory insights in the same order.
	replaceMu sync.Mutex
}

// NewManager creates a Manager backed by store. A nil store keeps sessions in
// memory only.
func NewManager(store Store) *Manager {
	return NewManagerWithClock(store, realClock{})
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, clock Clock) *Manager {
	return &Manager{
		store:    store,
		clock:    clock,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with no resume.
func (m *Manager) Create() (*Session, error) {
	id := uuid.New().String()
	now := m.clock.Now().UTC()

	if m.store != nil {
		if err := m.store.CreateSession(storage.Session{ID: id, CreatedAt: now}); err != nil {
			return nil, fmt.Errorf("persisting session: %w", err)
		}
	}

	s := newSession(id, now)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	slog.Info("session created", "session_id", id)
	return s, nil
}

// Get returns the live session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if m.store == nil || id == "" {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	rec, err := m.store.GetSession(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	s = newSession(rec.ID, rec.CreatedAt)
	in, err := m.store.GetInsights(id)
	switch {
	case err == nil:
		if verr := in.Validate(); verr != nil {
			slog.Warn("discarding stored insights", "session_id", id, "error", verr)
		} else {
			s.insights.Store(in)
		}
	case !errors.Is(err, storage.ErrNotFound):
		slog.Warn("loading stored insights failed", "session_id", id, "error", err)
	}

	m.sessions[id] = s
	slog.Debug("session rehydrated", "session_id", id, "has_resume", s.HasResume())
	return s, nil
}

// ReplaceInsights validates a private copy of in and swaps it in as the
// session's current insights. Insights with no analysis_quality are finalized
// first. On any error the previous value stays in place.
func (m *Manager) ReplaceInsights(id, resumeID string, in *resume.Insights) error {
	if in == nil {
		return fmt.Errorf("%w: nil insights", resume.ErrInvalid)
	}
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	cp := in.Clone()
	if cp.Metadata.AnalysisQuality == "" {
		err = cp.Finalize(m.clock.Now())
	} else {
		err = cp.Validate()
	}
	if err != nil {
		return err
	}

	m.replaceMu.Lock()
	defer m.replaceMu.Unlock()

	if m.store != nil {
		if err := m.store.SaveInsights(id, resumeID, cp); err != nil {
			return fmt.Errorf("persisting insights: %w", err)
		}
	}
	s.insights.Store(cp)

	slog.Info("resume insights replaced", "session_id", id, "quality", cp.Metadata.AnalysisQuality)
	return nil
}

// Close tears the session down and deletes its persisted state.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if live {
		s.close()
	}

	if m.store != nil {
		err := m.store.DeleteSession(id)
		if errors.Is(err, storage.ErrNotFound) {
			if live {
				return nil
			}
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
	} else if !live {
		return ErrNotFound
	}

	slog.Info("session closed", "session_id", id)
	return nil
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops every session worker without deleting persisted state.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range live {
		s.close()
	}
}
