// Package session provides in-memory conversation history management.
package session

import (
	"sync"

	"github.com/ashureev/virtual-hr/internal/domain"
)

// Store maps session identifiers to ordered conversation histories. State is
// process-wide and lost on restart; unbounded growth within the process
// lifetime is accepted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Turn
}

// NewStore creates a new session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string][]domain.Turn),
	}
}

// Append adds a turn to the session's history, creating the session on first
// reference.
func (s *Store) Append(sessionID string, role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], domain.Turn{
		Role:    role,
		Content: content,
	})
}

// History returns a copy of the session's full history in insertion order.
// Returns nil for an unknown session.
func (s *Store) History(sessionID string) []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

// Recent returns a copy of the last n turns of the session's history.
func (s *Store) Recent(sessionID string, n int) []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if n < len(turns) {
		turns = turns[len(turns)-n:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes the session. Clearing an absent session is not an error.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
