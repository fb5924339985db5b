package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

// AppointmentService defines the interface for appointment operations
type AppointmentService interface {
	Get(ctx context.Context, id int64, actor *entities.Account) (*entities.Appointment, error)
	Book(ctx context.Context, req services.BookingRequest, actor *entities.Account) (*entities.Appointment, error)
	Reschedule(ctx context.Context, id int64, req services.RescheduleRequest, actor *entities.Account) (*entities.Appointment, error)
	DoctorReschedule(ctx context.Context, id int64, req services.RescheduleRequest, actor *entities.Account) (*entities.Appointment, error)
	Rebook(ctx context.Context, sourceID int64, req services.RebookRequest, actor *entities.Account) (*entities.Appointment, error)
	Cancel(ctx context.Context, id int64, actor *entities.Account) (*entities.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, action services.StatusAction, actor *entities.Account) (*entities.Appointment, error)
	AddReview(ctx context.Context, id int64, rating int, review string, actor *entities.Account) (*entities.Appointment, error)
	ListForUser(ctx context.Context, actor *entities.Account, hospitalID int64) ([]*entities.Appointment, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
	}
}

type statusRequest struct {
	Action services.StatusAction `json:"action"`
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// ListAppointments handles GET /api/appointments?hospitalId=
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := queryID(r, "hospitalId")
	if err != nil {
		WriteError(w, err)
		return
	}

	list, err := h.service.ListForUser(r.Context(), middleware.ActorFromContext(r.Context()), hospitalID)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	appointment, err := h.service.Get(r.Context(), id, middleware.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// BookAppointment handles POST /api/appointments
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req services.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	appointment, err := h.service.Book(r.Context(), req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, appointment)
}

// RescheduleAppointment handles POST /api/appointments/{id}/reschedule.
// Doctors move their own appointments and may give a reason.
func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var req services.RescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	reschedule := h.service.Reschedule
	if actor.Role == entities.RoleDoctor {
		reschedule = h.service.DoctorReschedule
	}
	appointment, err := reschedule(r.Context(), id, req, actor)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// RebookAppointment handles POST /api/appointments/{id}/rebook
func (h *AppointmentHandler) RebookAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var req services.RebookRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	appointment, err := h.service.Rebook(r.Context(), id, req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, appointment)
}

// CancelAppointment handles POST /api/appointments/{id}/cancel
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	appointment, err := h.service.Cancel(r.Context(), id, middleware.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// UpdateStatus handles POST /api/appointments/{id}/status with {"action": "start|examine|complete"}
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	appointment, err := h.service.UpdateStatus(r.Context(), id, req.Action, middleware.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// AddReview handles POST /api/appointments/{id}/review
func (h *AppointmentHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	appointment, err := h.service.AddReview(r.Context(), id, req.Rating, req.Review, middleware.ActorFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}
