package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

type sessionRow struct {
	Token     string       `db:"token"`
	AccountID int64        `db:"account_id"`
	Role      string       `db:"role"`
	CreatedAt time.Time    `db:"created_at"`
	ExpiresAt sql.NullTime `db:"expires_at"`
}

// SessionAdapter implements the SessionRepository interface
type SessionAdapter struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSessionAdapter creates a new session adapter. now may be nil.
func NewSessionAdapter(client *postgres.Client, now func() time.Time) repositories.SessionRepository {
	if now == nil {
		now = time.Now
	}
	return &SessionAdapter{db: newDB(client), now: now}
}

// Save stores a session
func (a *SessionAdapter) Save(ctx context.Context, session *entities.Session) error {
	var expires interface{}
	if !session.ExpiresAt.IsZero() {
		expires = session.ExpiresAt
	}
	query, args, err := dialect.Insert("sessions").Prepared(true).
		Rows(goqu.Record{
			"token":      session.Token,
			"account_id": session.AccountID,
			"role":       string(session.Role),
			"created_at": session.CreatedAt,
			"expires_at": expires,
		}).
		ToSQL()
	if err != nil {
		return buildErr(err)
	}
	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save session", err)
	}
	return nil
}

// Get returns a live session
func (a *SessionAdapter) Get(ctx context.Context, token string) (*entities.Session, error) {
	query, args, err := dialect.From("sessions").Prepared(true).
		Select("token", "account_id", "role", "created_at", "expires_at").
		Where(goqu.Ex{"token": token}).
		ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	var row sessionRow
	err = a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get session", err)
	}

	session := &entities.Session{
		Token:     row.Token,
		AccountID: row.AccountID,
		Role:      entities.Role(row.Role),
		CreatedAt: row.CreatedAt,
	}
	if row.ExpiresAt.Valid {
		session.ExpiresAt = row.ExpiresAt.Time
	}
	if session.Expired(a.now()) {
		_ = a.Delete(ctx, token)
		return nil, apperrors.NewNotFoundError("session expired")
	}
	return session, nil
}

// Delete removes a session
func (a *SessionAdapter) Delete(ctx context.Context, token string) error {
	return a.deleteWhere(ctx, goqu.Ex{"token": token})
}

// DeleteByAccount removes every session of an account
func (a *SessionAdapter) DeleteByAccount(ctx context.Context, accountID int64) error {
	return a.deleteWhere(ctx, goqu.Ex{"account_id": accountID})
}

func (a *SessionAdapter) deleteWhere(ctx context.Context, where goqu.Ex) error {
	query, args, err := dialect.Delete("sessions").Prepared(true).Where(where).ToSQL()
	if err != nil {
		return buildErr(err)
	}
	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to delete sessions", err)
	}
	return nil
}
