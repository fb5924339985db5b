package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// SessionStore keeps sessions under currentUser:<token> with a TTL matching
// their expiry, and indexes the tokens of each account in a set
type SessionStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewSessionStore creates a new session store. now may be nil.
func NewSessionStore(rdb *redis.Client, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{rdb: rdb, now: now}
}

var _ repositories.SessionRepository = (*SessionStore)(nil)

func accountSessionsKey(accountID int64) string {
	return userSessionPrefix + field(accountID)
}

// Save stores a session
func (s *SessionStore) Save(ctx context.Context, session *entities.Session) error {
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return apperrors.NewValidationError("session already expired")
		}
	}
	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.NewInternalError("failed to encode session", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionPrefix+session.Token, data, ttl)
		p.SAdd(ctx, accountSessionsKey(session.AccountID), session.Token)
		return nil
	})
	if err != nil {
		return apperrors.NewInternalError("failed to save session", err)
	}
	return nil
}

// Get returns a live session
func (s *SessionStore) Get(ctx context.Context, token string) (*entities.Session, error) {
	data, err := s.rdb.Get(ctx, sessionPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read session", err)
	}
	var session entities.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperrors.NewInternalError("failed to decode session", err)
	}
	if session.Expired(s.now()) {
		return nil, apperrors.NewNotFoundError("session expired")
	}
	return &session, nil
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	session, err := s.Get(ctx, token)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return s.rdb.Del(ctx, sessionPrefix+token).Err()
	}
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionPrefix+token)
		p.SRem(ctx, accountSessionsKey(session.AccountID), token)
		return nil
	})
	if err != nil {
		return apperrors.NewInternalError("failed to delete session", err)
	}
	return nil
}

// DeleteByAccount removes every session of an account
func (s *SessionStore) DeleteByAccount(ctx context.Context, accountID int64) error {
	key := accountSessionsKey(accountID)
	tokens, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return apperrors.NewInternalError("failed to list sessions", err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionPrefix+t)
	}
	keys = append(keys, key)
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return apperrors.NewInternalError("failed to delete sessions", err)
	}
	return nil
}
