package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

const invalidCredentials = "invalid login credentials"

// SessionService authenticates accounts and resolves bearer tokens
type SessionService struct {
	accounts repositories.AccountRepository
	sessions repositories.SessionRepository
	clock    *Clock
	ttl      time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(accounts repositories.AccountRepository, sessions repositories.SessionRepository, clock *Clock, ttl time.Duration) *SessionService {
	return &SessionService{accounts: accounts, sessions: sessions, clock: clock, ttl: ttl}
}

// Login checks email, password and role and opens a session
func (s *SessionService) Login(ctx context.Context, email, password string, role entities.Role) (*entities.Session, *entities.Account, error) {
	if email == "" || password == "" || role == "" {
		return nil, nil, apperrors.NewValidationError("email, password and role are required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, nil, apperrors.NewUnauthorizedError(invalidCredentials)
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}
	if account.Role != role {
		return nil, nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}

	now := s.clock.Now()
	session := &entities.Session{
		Token:     uuid.NewString(),
		AccountID: account.ID,
		Role:      account.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, nil, apperrors.NewInternalError("failed to store session", err)
	}

	log.Info().Int64("user_id", account.ID).Str("role", string(account.Role)).Msg("User logged in")
	return session, account, nil
}

// Logout ends a session
func (s *SessionService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Current resolves a token to its live session and account
func (s *SessionService) Current(ctx context.Context, token string) (*entities.Session, *entities.Account, error) {
	if token == "" {
		return nil, nil, apperrors.NewUnauthorizedError("authentication required")
	}
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, nil, apperrors.NewUnauthorizedError("session expired, please log in again")
		}
		return nil, nil, err
	}
	if session.Expired(s.clock.Now()) {
		_ = s.sessions.Delete(ctx, token)
		return nil, nil, apperrors.NewUnauthorizedError("session expired, please log in again")
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			_ = s.sessions.Delete(ctx, token)
			return nil, nil, apperrors.NewUnauthorizedError("account no longer exists")
		}
		return nil, nil, err
	}
	return session, account, nil
}
