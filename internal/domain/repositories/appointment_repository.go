package repositories

import (
	"context"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations.
// Implementations enforce that at most one non-cancelled appointment holds a
// (doctor, date, time) slot and return a CONFLICT AppError otherwise.
type AppointmentRepository interface {
	// Create assigns the next ID and stores the appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id int64) (*entities.Appointment, error)

	// Update replaces a stored appointment, moving its slot claim when date or time changed
	Update(ctx context.Context, appointment *entities.Appointment) error

	// TransitionStatus moves an appointment to a new status only if its current
	// status is one of from. mutate, when non-nil, is applied to the record
	// before it is saved. Returns a CONFLICT AppError if the guard fails.
	TransitionStatus(ctx context.Context, id int64, from []entities.AppointmentStatus, to entities.AppointmentStatus, mutate func(*entities.Appointment)) (*entities.Appointment, error)

	// List retrieves appointments matching the filter
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)

	// DeleteByPatient removes every appointment of a patient and returns the count
	DeleteByPatient(ctx context.Context, patientID int64) (int, error)

	// DeleteByDoctor removes every appointment of a catalog doctor and returns the count
	DeleteByDoctor(ctx context.Context, doctorID int64) (int, error)
}

// AppointmentFilter defines filters for listing appointments.
// Zero values are ignored.
type AppointmentFilter struct {
	PatientID  int64
	DoctorID   int64
	HospitalID int64
	Date       string
	DateFrom   string
	DateTo     string
	Statuses   []entities.AppointmentStatus
	Limit      int
	Offset     int
}

// Matches reports whether a satisfies the filter, ignoring Limit and Offset
func (f AppointmentFilter) Matches(a *entities.Appointment) bool {
	if f.PatientID != 0 && a.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != 0 && a.DoctorID != f.DoctorID {
		return false
	}
	if f.HospitalID != 0 && a.HospitalID != f.HospitalID {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	if f.DateFrom != "" && a.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && a.Date > f.DateTo {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	}
	return true
}
