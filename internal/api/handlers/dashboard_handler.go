package handlers

import (
	"net/http"

	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
)

// DashboardHandler serves the per-role dashboards
type DashboardHandler struct {
	service *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func pageFromQuery(r *http.Request, pageParam string, perPage int) (services.PageRequest, error) {
	page, err := queryInt(r, pageParam)
	if err != nil {
		return services.PageRequest{}, err
	}
	return services.PageRequest{Page: page, PerPage: perPage}, nil
}

// PatientDashboard handles GET /api/dashboard/patient?upcomingPage=&historyPage=&cancelledPage=&perPage=
func (h *DashboardHandler) PatientDashboard(w http.ResponseWriter, r *http.Request) {
	perPage, err := queryInt(r, "perPage")
	if err != nil {
		WriteError(w, err)
		return
	}
	var q services.PatientDashboardQuery
	if q.Upcoming, err = pageFromQuery(r, "upcomingPage", perPage); err != nil {
		WriteError(w, err)
		return
	}
	if q.History, err = pageFromQuery(r, "historyPage", perPage); err != nil {
		WriteError(w, err)
		return
	}
	if q.Cancelled, err = pageFromQuery(r, "cancelledPage", perPage); err != nil {
		WriteError(w, err)
		return
	}

	dash, err := h.service.Patient(r.Context(), middleware.ActorFromContext(r.Context()), q)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dash)
}

// DoctorDashboard handles GET /api/dashboard/doctor?date=&hospitalId=
func (h *DashboardHandler) DoctorDashboard(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := queryID(r, "hospitalId")
	if err != nil {
		WriteError(w, err)
		return
	}

	dash, err := h.service.Doctor(r.Context(), middleware.ActorFromContext(r.Context()), services.DoctorDashboardQuery{
		Date:       r.URL.Query().Get("date"),
		HospitalID: hospitalID,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dash)
}

// AdminDashboard handles GET /api/dashboard/admin?hospitalId=
func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := queryID(r, "hospitalId")
	if err != nil {
		WriteError(w, err)
		return
	}

	dash, err := h.service.Admin(r.Context(), middleware.ActorFromContext(r.Context()), hospitalID)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dash)
}
