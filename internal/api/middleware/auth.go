package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

type contextKey int

const (
	actorKey contextKey = iota
	tokenKey
)

// SessionResolver resolves a bearer token to its account
type SessionResolver interface {
	Current(ctx context.Context, token string) (*entities.Session, *entities.Account, error)
}

// ErrorWriter renders an error response
type ErrorWriter func(w http.ResponseWriter, err error)

// WithActor returns a context carrying the authenticated account and its token
func WithActor(ctx context.Context, actor *entities.Account, token string) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	return context.WithValue(ctx, tokenKey, token)
}

// ActorFromContext returns the authenticated account, or nil
func ActorFromContext(ctx context.Context) *entities.Account {
	actor, _ := ctx.Value(actorKey).(*entities.Account)
	return actor
}

// TokenFromContext returns the session token of the request
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
// EventSource clients cannot set headers, so an access_token query value is accepted too.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return r.URL.Query().Get("access_token")
}

// Authenticate rejects requests without a live session and stores the actor in the context
func Authenticate(sessions SessionResolver, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeErr(w, apperrors.NewUnauthorizedError("authentication required"))
				return
			}
			_, actor, err := sessions.Current(r.Context(), token)
			if err != nil {
				writeErr(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor, token)))
		})
	}
}

// RequireRole only lets actors with one of roles through. It must run after Authenticate.
func RequireRole(writeErr ErrorWriter, roles ...entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor == nil {
				writeErr(w, apperrors.NewUnauthorizedError("authentication required"))
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeErr(w, apperrors.NewForbiddenError("you do not have access to this resource"))
		})
	}
}
