// Package memory provides an in-process session archive used in tests and
// ephemeral runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"strongholdcore/pkg/domain"
)

var _ domain.SessionStore = (*Store)(nil)

// Store keeps sessions in a map guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]domain.Session)}
}

// SaveSession inserts or replaces a session by ID.
func (s *Store) SaveSession(_ context.Context, session domain.Session) error {
	if session.ID == "" {
		return errors.New("session id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// GetSession returns the session with id.
func (s *Store) GetSession(_ context.Context, id string) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, false, nil
	}
	return session.Clone(), true, nil
}

// ListSessions returns sessions newest first.
func (s *Store) ListSessions(_ context.Context, limit int) ([]domain.Session, error) {
	s.mu.RLock()
	out := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	s.mu.RUnlock()
	SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// SortNewestFirst orders sessions by EndedAt descending, then ID.
func SortNewestFirst(sessions []domain.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].EndedAt.Equal(sessions[j].EndedAt) {
			return sessions[i].EndedAt.After(sessions[j].EndedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
