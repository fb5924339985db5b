package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

// Registrar creates self-service accounts
type Registrar interface {
	Register(ctx context.Context, req services.RegisterRequest) (*entities.Account, error)
}

// SessionManager opens and closes sessions
type SessionManager interface {
	Login(ctx context.Context, email, password string, role entities.Role) (*entities.Session, *entities.Account, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles registration and sessions
type AuthHandler struct {
	accounts Registrar
	sessions SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts Registrar, sessions SessionManager) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

type loginRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     entities.Role `json:"role"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *entities.Account `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	account, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, account)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	session, account, err := h.sessions.Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      account,
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, middleware.ActorFromContext(r.Context()))
}
