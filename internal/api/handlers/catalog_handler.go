package handlers

import (
	"net/http"

	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
)

// CatalogHandler serves hospitals, specialties, doctors and their availability
type CatalogHandler struct {
	catalog      *services.Catalog
	directory    *services.DoctorDirectory
	specialties  *services.SpecialtyService
	availability *services.AvailabilityChecker
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(
	catalog *services.Catalog,
	directory *services.DoctorDirectory,
	specialties *services.SpecialtyService,
	availability *services.AvailabilityChecker,
) *CatalogHandler {
	return &CatalogHandler{
		catalog:      catalog,
		directory:    directory,
		specialties:  specialties,
		availability: availability,
	}
}

// ListHospitals handles GET /api/hospitals
func (h *CatalogHandler) ListHospitals(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.catalog.Hospitals())
}

// ListSpecialties handles GET /api/specialties
func (h *CatalogHandler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	list, err := h.specialties.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// ListDoctors handles GET /api/doctors?specialty=&hospitalId=
// Only doctors of an existing specialty are returned.
func (h *CatalogHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := queryID(r, "hospitalId")
	if err != nil {
		WriteError(w, err)
		return
	}

	doctors, err := h.directory.Bookable(r.Context(), services.DoctorFilter{
		Specialty:  r.URL.Query().Get("specialty"),
		HospitalID: hospitalID,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doctors)
}

// SearchDoctors handles GET /api/doctors/search?q=&specialty=&hospitalId=&limit=
func (h *CatalogHandler) SearchDoctors(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := queryID(r, "hospitalId")
	if err != nil {
		WriteError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}

	query := r.URL.Query()
	doctors, err := h.directory.Search(r.Context(), providers.DoctorSearchQuery{
		Query:      query.Get("q"),
		Specialty:  query.Get("specialty"),
		HospitalID: hospitalID,
		Limit:      limit,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doctors)
}

// GetDoctorSlots handles GET /api/doctors/{id}/slots?date=&exclude=
// exclude is the appointment being moved, whose own slot stays selectable.
func (h *CatalogHandler) GetDoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	if _, err := h.catalog.Doctor(doctorID); err != nil {
		WriteError(w, err)
		return
	}
	exclude, err := queryID(r, "exclude")
	if err != nil {
		WriteError(w, err)
		return
	}

	slots, err := h.availability.Slots(r.Context(), doctorID, r.URL.Query().Get("date"), exclude, "")
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, slots)
}

// GetDoctorCalendar handles GET /api/doctors/{id}/calendar?month=YYYY-MM
func (h *CatalogHandler) GetDoctorCalendar(w http.ResponseWriter, r *http.Request) {
	doctorID, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.catalog.Doctor(doctorID); err != nil {
		WriteError(w, err)
		return
	}

	days, err := h.availability.Calendar(r.Context(), doctorID, r.URL.Query().Get("month"))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctorId": doctorID,
		"days":     days,
	})
}
