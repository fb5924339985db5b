package handlers

import (
	"net/http"

	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// AdminHandler handles user and specialty management
type AdminHandler struct {
	accounts    *services.AccountService
	specialties *services.SpecialtyService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(accounts *services.AccountService, specialties *services.SpecialtyService) *AdminHandler {
	return &AdminHandler{accounts: accounts, specialties: specialties}
}

// ListUsers handles GET /api/admin/users?role=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := entities.Role(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		WriteError(w, apperrors.NewValidationError("invalid role"))
		return
	}

	users, err := h.accounts.ListUsers(r.Context(), role)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// CreateUser handles POST /api/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	user, err := h.accounts.CreateUser(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.accounts.DeleteUser(r.Context(), id, middleware.ActorFromContext(r.Context())); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSpecialty handles POST /api/admin/specialties
func (h *AdminHandler) CreateSpecialty(w http.ResponseWriter, r *http.Request) {
	var in services.SpecialtyInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}

	specialty, err := h.specialties.Create(r.Context(), in)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, specialty)
}

// UpdateSpecialty handles PUT /api/admin/specialties/{id}
func (h *AdminHandler) UpdateSpecialty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var in services.SpecialtyInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}

	specialty, err := h.specialties.Update(r.Context(), id, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, specialty)
}

// DeleteSpecialty handles DELETE /api/admin/specialties/{id}
func (h *AdminHandler) DeleteSpecialty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.specialties.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
