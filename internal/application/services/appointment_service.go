package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// BookingRequest describes a new appointment
type BookingRequest struct {
	// PatientID is only read when an admin books on a patient's behalf
	PatientID int64  `json:"patientId,omitempty"`
	DoctorID  int64  `json:"doctorId"`
	Specialty string `json:"specialty,omitempty"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes,omitempty"`
}

// RescheduleRequest moves an appointment to another slot of the same doctor
type RescheduleRequest struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Notes  string `json:"notes,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// RebookRequest creates a follow-up appointment from an earlier one
type RebookRequest struct {
	// DoctorID overrides the source doctor when non-zero
	DoctorID int64  `json:"doctorId,omitempty"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Notes    string `json:"notes,omitempty"`
}

// StatusAction is a doctor's lifecycle command
type StatusAction string

const (
	StatusActionStart    StatusAction = "start"
	StatusActionExamine  StatusAction = "examine"
	StatusActionComplete StatusAction = "complete"
)

var statusActionTargets = map[StatusAction]entities.AppointmentStatus{
	StatusActionStart:    entities.AppointmentStatusOngoing,
	StatusActionExamine:  entities.AppointmentStatusExamined,
	StatusActionComplete: entities.AppointmentStatusCompleted,
}

// AppointmentService handles appointment booking logic
type AppointmentService struct {
	repo         repositories.AppointmentRepository
	accounts     repositories.AccountRepository
	directory    *DoctorDirectory
	availability *AvailabilityChecker
	reconciler   *ReconciliationService
	clock        *Clock
	events       eventPublisher
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	accounts repositories.AccountRepository,
	directory *DoctorDirectory,
	availability *AvailabilityChecker,
	reconciler *ReconciliationService,
	clock *Clock,
	bus providers.EventBus,
) *AppointmentService {
	return &AppointmentService{
		repo:         repo,
		accounts:     accounts,
		directory:    directory,
		availability: availability,
		reconciler:   reconciler,
		clock:        clock,
		events:       eventPublisher{bus: bus},
	}
}

// authorize checks that actor may act on appointment a
func authorize(actor *entities.Account, a *entities.Appointment) error {
	if actor == nil {
		return apperrors.NewUnauthorizedError("authentication required")
	}
	switch actor.Role {
	case entities.RoleAdmin:
		return nil
	case entities.RolePatient:
		if a.PatientID == actor.ID {
			return nil
		}
	case entities.RoleDoctor:
		if actor.DoctorID != 0 && a.DoctorID == actor.DoctorID {
			return nil
		}
	}
	return apperrors.NewForbiddenError("you do not have access to this appointment")
}

// Get returns an appointment visible to actor
func (s *AppointmentService) Get(ctx context.Context, id int64, actor *entities.Account) (*entities.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

// bookableDoctor loads a doctor that can currently take bookings
func (s *AppointmentService) bookableDoctor(ctx context.Context, doctorID int64) (*entities.Doctor, error) {
	if doctorID == 0 {
		return nil, apperrors.NewValidationError("please choose a doctor")
	}
	doctor, err := s.directory.Catalog().Doctor(doctorID)
	if err != nil {
		return nil, err
	}
	ok, err := s.directory.IsBookable(ctx, doctor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s is not accepting bookings", doctor.Name))
	}
	return doctor, nil
}

// patientFor resolves whose appointment is being booked
func (s *AppointmentService) patientFor(ctx context.Context, actor *entities.Account, patientID int64) (*entities.Account, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	switch actor.Role {
	case entities.RolePatient:
		return actor, nil
	case entities.RoleAdmin:
		if patientID == 0 {
			return nil, apperrors.NewValidationError("patientId is required")
		}
		patient, err := s.accounts.GetByID(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if patient.Role != entities.RolePatient {
			return nil, apperrors.NewValidationError("appointments can only be booked for patients")
		}
		return patient, nil
	default:
		return nil, apperrors.NewForbiddenError("only patients can book appointments")
	}
}

// Book creates a new upcoming appointment
func (s *AppointmentService) Book(ctx context.Context, req BookingRequest, actor *entities.Account) (*entities.Appointment, error) {
	patient, err := s.patientFor(ctx, actor, req.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.bookableDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if req.Specialty != "" && req.Specialty != doctor.Specialty {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s does not practise %s", doctor.Name, req.Specialty))
	}
	return s.create(ctx, patient, doctor, req.Date, req.Time, req.Notes, entities.BookingModePlain, nil)
}

func (s *AppointmentService) create(ctx context.Context, patient *entities.Account, doctor *entities.Doctor, date, slot, notes string, mode entities.BookingMode, rebookedFrom *int64) (*entities.Appointment, error) {
	if date == "" || slot == "" {
		return nil, apperrors.NewValidationError("please choose a date and time")
	}
	ts, err := s.availability.CheckBookable(ctx, doctor.ID, date, slot, 0)
	if err != nil {
		return nil, err
	}
	hospital, err := s.directory.Catalog().Hospital(doctor.HospitalID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	a := &entities.Appointment{
		PatientID:    patient.ID,
		PatientName:  patient.Name,
		PatientCode:  patient.PatientCode,
		DoctorID:     doctor.ID,
		DoctorName:   doctor.Name,
		Specialty:    doctor.Specialty,
		HospitalID:   hospital.ID,
		HospitalName: hospital.Name,
		Date:         date,
		Time:         ts.Start,
		TimeRange:    ts.Label(),
		Status:       entities.AppointmentStatusUpcoming,
		Notes:        strings.TrimSpace(notes),
		RebookedFrom: rebookedFrom,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	recordBooked(ctx, mode)
	s.events.publish(ctx, entities.AppointmentEventBooked, a)
	log.Info().
		Int64("appointment_id", a.ID).
		Int64("patient_id", a.PatientID).
		Int64("doctor_id", a.DoctorID).
		Str("date", a.Date).
		Str("time", a.Time).
		Str("mode", string(mode)).
		Msg("Appointment booked")
	return a, nil
}

// Reschedule moves a patient's upcoming appointment to a new slot of the same doctor.
// The first reschedule records the original date and time.
func (s *AppointmentService) Reschedule(ctx context.Context, id int64, req RescheduleRequest, actor *entities.Account) (*entities.Appointment, error) {
	current, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role == entities.RoleDoctor {
		return nil, apperrors.NewForbiddenError("doctors reschedule through the doctor dashboard")
	}
	notes := strings.TrimSpace(req.Notes)
	return s.move(ctx, current, req.Date, req.Time, func(a *entities.Appointment) {
		if a.OriginalDate == "" {
			a.OriginalDate = current.Date
			a.OriginalTime = current.Time
		}
		a.Notes = notes
	})
}

// DoctorReschedule moves one of the doctor's upcoming appointments and records a reason
func (s *AppointmentService) DoctorReschedule(ctx context.Context, id int64, req RescheduleRequest, actor *entities.Account) (*entities.Appointment, error) {
	if actor == nil || (actor.Role != entities.RoleDoctor && actor.Role != entities.RoleAdmin) {
		return nil, apperrors.NewForbiddenError("only doctors can use this action")
	}
	current, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	return s.move(ctx, current, req.Date, req.Time, func(a *entities.Appointment) {
		a.RescheduleReason = reason
	})
}

func (s *AppointmentService) move(ctx context.Context, current *entities.Appointment, date, slot string, mutate func(*entities.Appointment)) (*entities.Appointment, error) {
	if current.Status != entities.AppointmentStatusUpcoming {
		return nil, apperrors.NewValidationError("only upcoming appointments can be rescheduled")
	}
	if date == "" || slot == "" {
		return nil, apperrors.NewValidationError("please choose a new date and time")
	}
	ts, err := s.availability.CheckBookable(ctx, current.DoctorID, date, slot, current.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, err := s.repo.TransitionStatus(ctx, current.ID,
		[]entities.AppointmentStatus{entities.AppointmentStatusUpcoming},
		entities.AppointmentStatusUpcoming,
		func(a *entities.Appointment) {
			mutate(a)
			a.Date = date
			a.Time = ts.Start
			a.TimeRange = ts.Label()
			a.RescheduledAt = &now
			a.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, entities.AppointmentEventRescheduled, updated)
	log.Info().
		Int64("appointment_id", updated.ID).
		Str("from", current.Date+" "+current.Time).
		Str("to", updated.Date+" "+updated.Time).
		Msg("Appointment rescheduled")
	return updated, nil
}

// Rebook books a new appointment carrying over the context of an earlier one
func (s *AppointmentService) Rebook(ctx context.Context, sourceID int64, req RebookRequest, actor *entities.Account) (*entities.Appointment, error) {
	source, err := s.Get(ctx, sourceID, actor)
	if err != nil {
		return nil, err
	}
	patient, err := s.patientFor(ctx, actor, source.PatientID)
	if err != nil {
		return nil, err
	}

	doctorID := req.DoctorID
	if doctorID == 0 {
		doctorID = source.DoctorID
	}
	doctor, err := s.bookableDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	from := source.ID
	return s.create(ctx, patient, doctor, req.Date, req.Time, req.Notes, entities.BookingModeRebook, &from)
}

// Cancel cancels an upcoming appointment and frees its slot
func (s *AppointmentService) Cancel(ctx context.Context, id int64, actor *entities.Account) (*entities.Appointment, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, err := s.repo.TransitionStatus(ctx, id,
		[]entities.AppointmentStatus{entities.AppointmentStatusUpcoming},
		entities.AppointmentStatusCancelled,
		func(a *entities.Appointment) {
			a.CancelledAt = &now
			a.UpdatedAt = now
		},
	)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			return nil, apperrors.NewValidationError("only upcoming appointments can be cancelled")
		}
		return nil, err
	}

	s.events.publish(ctx, entities.AppointmentEventCancelled, updated)
	log.Info().Int64("appointment_id", id).Int64("actor_id", actor.ID).Msg("Appointment cancelled")
	return updated, nil
}

// UpdateStatus applies a doctor's lifecycle action
func (s *AppointmentService) UpdateStatus(ctx context.Context, id int64, action StatusAction, actor *entities.Account) (*entities.Appointment, error) {
	if actor == nil || (actor.Role != entities.RoleDoctor && actor.Role != entities.RoleAdmin) {
		return nil, apperrors.NewForbiddenError("only doctors can change appointment status")
	}
	to, ok := statusActionTargets[action]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown action %q", action))
	}
	current, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(to) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot move appointment from %s to %s", current.Status, to))
	}

	now := s.clock.Now()
	updated, err := s.repo.TransitionStatus(ctx, id, []entities.AppointmentStatus{current.Status}, to, func(a *entities.Appointment) {
		if to == entities.AppointmentStatusCompleted {
			a.CompletionReason = entities.CompletionReasonManual
		}
		a.UpdatedAt = now
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, entities.AppointmentEventStatus, updated)
	log.Info().Int64("appointment_id", id).Str("from", string(current.Status)).Str("to", string(to)).Msg("Appointment status changed")
	return updated, nil
}

// AddReview stores a patient's rating of a finished appointment; only one review is kept
func (s *AppointmentService) AddReview(ctx context.Context, id int64, rating int, review string, actor *entities.Account) (*entities.Appointment, error) {
	if actor == nil || actor.Role != entities.RolePatient {
		return nil, apperrors.NewForbiddenError("only patients can review appointments")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5")
	}
	current, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if current.Status != entities.AppointmentStatusCompleted && current.Status != entities.AppointmentStatusExamined {
		return nil, apperrors.NewValidationError("only finished appointments can be reviewed")
	}
	if current.Rating != nil {
		return nil, apperrors.NewConflictError("this appointment has already been reviewed")
	}

	now := s.clock.Now()
	review = strings.TrimSpace(review)
	updated, err := s.repo.TransitionStatus(ctx, id, []entities.AppointmentStatus{current.Status}, current.Status, func(a *entities.Appointment) {
		r := rating
		a.Rating = &r
		a.Review = review
		a.UpdatedAt = now
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, entities.AppointmentEventReviewed, updated)
	return updated, nil
}

// ListForUser returns the appointments visible to actor after running the overdue sweep.
// hospitalID narrows doctor and admin views when non-zero.
func (s *AppointmentService) ListForUser(ctx context.Context, actor *entities.Account, hospitalID int64) ([]*entities.Appointment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}

	filter := repositories.AppointmentFilter{}
	switch actor.Role {
	case entities.RolePatient:
		filter.PatientID = actor.ID
	case entities.RoleDoctor:
		if actor.DoctorID == 0 {
			return []*entities.Appointment{}, nil
		}
		filter.DoctorID = actor.DoctorID
		filter.HospitalID = hospitalID
	case entities.RoleAdmin:
		filter.HospitalID = hospitalID
	default:
		return nil, apperrors.NewForbiddenError("unknown role")
	}

	appointments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.reconciler != nil {
		if _, err := s.reconciler.Sweep(ctx, appointments); err != nil {
			log.Warn().Err(err).Msg("Overdue sweep failed")
		}
	}
	return appointments, nil
}
