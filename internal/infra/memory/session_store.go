package memory

import (
	"context"
	"sync"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
)

// SessionStore keeps auth sessions in process. Lookups slide the expiry forward.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]sessionEntry),
	}
}

func (s *SessionStore) Save(_ context.Context, token string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = sessionEntry{userID: userID, expiresAt: s.clock().Add(s.ttl)}
	return nil
}

func (s *SessionStore) Lookup(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[token]
	if !ok {
		return uuid.Nil, domain.ErrSessionNotFound
	}
	now := s.clock()
	if !entry.expiresAt.After(now) {
		delete(s.sessions, token)
		return uuid.Nil, domain.ErrSessionNotFound
	}
	entry.expiresAt = now.Add(s.ttl)
	s.sessions[token] = entry
	return entry.userID, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
