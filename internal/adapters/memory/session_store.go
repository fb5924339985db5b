package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// SessionStore implements repositories.SessionRepository in memory
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entities.Session
	now      func() time.Time
}

// NewSessionStore creates an empty store. now may be nil.
func NewSessionStore(now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{sessions: make(map[string]*entities.Session), now: now}
}

var _ repositories.SessionRepository = (*SessionStore)(nil)

// Save stores a session
func (s *SessionStore) Save(ctx context.Context, session *entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.Token] = &c
	return nil
}

// Get returns a live session; expired ones are evicted
func (s *SessionStore) Get(ctx context.Context, token string) (*entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	if session.Expired(s.now()) {
		delete(s.sessions, token)
		return nil, apperrors.NewNotFoundError("session expired")
	}
	c := *session
	return &c, nil
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// DeleteByAccount removes every session of an account
func (s *SessionStore) DeleteByAccount(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.AccountID == accountID {
			delete(s.sessions, token)
		}
	}
	return nil
}
