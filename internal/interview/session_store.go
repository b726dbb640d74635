package interview

import (
	"sync"

	"github.com/danualab/InterviewPipe/internal/models"
)

// SessionStore holds in-flight interview sessions keyed by user ID. It is
// safe for concurrent access across users; turns for a single user are
// serialized by the transport, so a caller may mutate a fetched session for
// the remainder of its turn.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*models.Session)}
}

// Get returns the live session for userID, if any.
func (s *SessionStore) Get(userID string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Put installs sess, replacing any previous session for the same user.
func (s *SessionStore) Put(sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
}

// Delete removes the session for userID. Deleting an absent session is a
// no-op.
func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len reports the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
