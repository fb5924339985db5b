package handlers

import (
	"net/http"

	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

// BookingHandler drives the four-step booking wizard
type BookingHandler struct {
	wizard *services.WizardService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(wizard *services.WizardService) *BookingHandler {
	return &BookingHandler{wizard: wizard}
}

type stepRequest struct {
	Step entities.BookingStep `json:"step"`
}

func (h *BookingHandler) respondDraft(w http.ResponseWriter, status int, view *services.DraftView, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, status, view)
}

// StartBooking handles POST /api/bookings
func (h *BookingHandler) StartBooking(w http.ResponseWriter, r *http.Request) {
	var req services.StartBookingRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}
	}

	view, err := h.wizard.Start(r.Context(), req, middleware.ActorFromContext(r.Context()))
	h.respondDraft(w, http.StatusCreated, view, err)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Get(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	h.respondDraft(w, http.StatusOK, view, err)
}

// UpdateBooking handles PATCH /api/bookings/{id}. Absent fields are left unchanged.
func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var sel entities.BookingSelection
	if err := decodeJSON(r, &sel); err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.wizard.Update(r.Context(), r.PathValue("id"), sel, middleware.ActorFromContext(r.Context()))
	h.respondDraft(w, http.StatusOK, view, err)
}

// NextStep handles POST /api/bookings/{id}/next
func (h *BookingHandler) NextStep(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Next(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	h.respondDraft(w, http.StatusOK, view, err)
}

// PreviousStep handles POST /api/bookings/{id}/back
func (h *BookingHandler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Back(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	h.respondDraft(w, http.StatusOK, view, err)
}

// GoToStep handles POST /api/bookings/{id}/step with {"step": n}
func (h *BookingHandler) GoToStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.wizard.GoTo(r.Context(), r.PathValue("id"), req.Step, middleware.ActorFromContext(r.Context()))
	h.respondDraft(w, http.StatusOK, view, err)
}

// ConfirmBooking handles POST /api/bookings/{id}/confirm
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.wizard.Confirm(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, appointment)
}

// DiscardBooking handles DELETE /api/bookings/{id}
func (h *BookingHandler) DiscardBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.Discard(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context())); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
