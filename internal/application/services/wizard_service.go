package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

const draftKeyPrefix = "booking:draft:"

// StartBookingRequest opens a wizard
type StartBookingRequest struct {
	Mode entities.BookingMode `json:"mode"`
	// SourceAppointmentID is required for reschedule and rebook
	SourceAppointmentID int64 `json:"sourceAppointmentId,omitempty"`
}

// DraftView is a draft together with the slot grid for its current doctor and date
type DraftView struct {
	Draft *entities.BookingDraft `json:"draft"`
	Slots []entities.SlotView    `json:"slots,omitempty"`
}

// WizardService stores booking drafts in the cache and commits them
type WizardService struct {
	wizard       *BookingWizard
	appointments *AppointmentService
	availability *AvailabilityChecker
	cache        providers.CacheProvider
	clock        *Clock
	ttl          time.Duration
}

// NewWizardService creates a new wizard service
func NewWizardService(
	wizard *BookingWizard,
	appointments *AppointmentService,
	availability *AvailabilityChecker,
	cache providers.CacheProvider,
	clock *Clock,
	ttl time.Duration,
) *WizardService {
	return &WizardService{
		wizard:       wizard,
		appointments: appointments,
		availability: availability,
		cache:        cache,
		clock:        clock,
		ttl:          ttl,
	}
}

func draftKey(id string) string {
	return draftKeyPrefix + id
}

func (s *WizardService) save(ctx context.Context, d *entities.BookingDraft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return apperrors.NewInternalError("failed to encode booking draft", err)
	}
	if err := s.cache.Set(ctx, draftKey(d.ID), data, s.ttl); err != nil {
		return apperrors.NewInternalError("failed to store booking draft", err)
	}
	return nil
}

func (s *WizardService) load(ctx context.Context, id string, actor *entities.Account) (*entities.BookingDraft, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	data, err := s.cache.Get(ctx, draftKey(id))
	if err != nil {
		if errors.Is(err, providers.ErrCacheMiss) {
			return nil, apperrors.NewNotFoundError("booking draft not found or expired")
		}
		return nil, apperrors.NewInternalError("failed to load booking draft", err)
	}
	var d entities.BookingDraft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperrors.NewInternalError("failed to decode booking draft", err)
	}
	if d.PatientID != actor.ID {
		return nil, apperrors.NewForbiddenError("this booking belongs to another user")
	}
	return &d, nil
}

func (s *WizardService) view(ctx context.Context, d *entities.BookingDraft) (*DraftView, error) {
	v := &DraftView{Draft: d}
	if d.DoctorID == 0 || d.Date == "" {
		return v, nil
	}
	pinned := ""
	if d.Mode == entities.BookingModeReschedule && d.Date == d.PinnedDate {
		pinned = d.PinnedTime
	}
	slots, err := s.availability.Slots(ctx, d.DoctorID, d.Date, excludeID(d), pinned)
	if err != nil {
		return nil, err
	}
	v.Slots = slots
	return v, nil
}

// Start opens a wizard for a patient. Reschedule drafts start at the
// date step with the current slot pinned; rebook drafts start at the date
// step with today's date and no slot.
func (s *WizardService) Start(ctx context.Context, req StartBookingRequest, actor *entities.Account) (*DraftView, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if actor.Role != entities.RolePatient {
		return nil, apperrors.NewForbiddenError("only patients can use the booking wizard")
	}
	if req.Mode == "" {
		req.Mode = entities.BookingModePlain
	}

	now := s.clock.Now()
	d := &entities.BookingDraft{
		ID:        uuid.NewString(),
		Mode:      req.Mode,
		Step:      entities.StepSpecialty,
		PatientID: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch req.Mode {
	case entities.BookingModePlain:
	case entities.BookingModeReschedule, entities.BookingModeRebook:
		source, err := s.appointments.Get(ctx, req.SourceAppointmentID, actor)
		if err != nil {
			return nil, err
		}
		doctor, err := s.wizard.directory.Catalog().Doctor(source.DoctorID)
		if err != nil {
			return nil, err
		}
		d.SourceAppointmentID = source.ID
		d.Specialty = doctor.Specialty
		d.DoctorID = doctor.ID
		d.HospitalID = doctor.HospitalID
		d.Step = entities.StepDateTime

		if req.Mode == entities.BookingModeReschedule {
			if source.Status != entities.AppointmentStatusUpcoming {
				return nil, apperrors.NewValidationError("only upcoming appointments can be rescheduled")
			}
			d.Date, d.Time = source.Date, source.Time
			d.PinnedDate, d.PinnedTime = source.Date, source.Time
			d.Notes = source.Notes
		} else {
			d.Date = s.clock.Today()
		}
	default:
		return nil, apperrors.NewValidationError("mode must be plain, reschedule or rebook")
	}

	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	log.Debug().Str("draft_id", d.ID).Str("mode", string(d.Mode)).Int64("patient_id", actor.ID).Msg("Booking wizard started")
	return s.view(ctx, d)
}

// Get returns a draft and its slot grid
func (s *WizardService) Get(ctx context.Context, id string, actor *entities.Account) (*DraftView, error) {
	d, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d)
}

func (s *WizardService) step(ctx context.Context, id string, actor *entities.Account, fn func(*entities.BookingDraft) (*entities.BookingDraft, error)) (*DraftView, error) {
	d, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	next, err := fn(d)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	return s.view(ctx, next)
}

// Update applies a selection to a draft
func (s *WizardService) Update(ctx context.Context, id string, sel entities.BookingSelection, actor *entities.Account) (*DraftView, error) {
	return s.step(ctx, id, actor, func(d *entities.BookingDraft) (*entities.BookingDraft, error) {
		return s.wizard.Apply(ctx, d, sel)
	})
}

// Next advances a draft after validating its current step
func (s *WizardService) Next(ctx context.Context, id string, actor *entities.Account) (*DraftView, error) {
	return s.step(ctx, id, actor, func(d *entities.BookingDraft) (*entities.BookingDraft, error) {
		return s.wizard.Next(ctx, d)
	})
}

// Back moves a draft one step back
func (s *WizardService) Back(ctx context.Context, id string, actor *entities.Account) (*DraftView, error) {
	return s.step(ctx, id, actor, func(d *entities.BookingDraft) (*entities.BookingDraft, error) {
		return s.wizard.Back(d), nil
	})
}

// GoTo jumps a draft to step
func (s *WizardService) GoTo(ctx context.Context, id string, step entities.BookingStep, actor *entities.Account) (*DraftView, error) {
	return s.step(ctx, id, actor, func(d *entities.BookingDraft) (*entities.BookingDraft, error) {
		return s.wizard.GoTo(ctx, d, step)
	})
}

// Confirm commits a draft at the confirmation step and discards it
func (s *WizardService) Confirm(ctx context.Context, id string, actor *entities.Account) (*entities.Appointment, error) {
	d, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.wizard.Ready(ctx, d); err != nil {
		return nil, err
	}

	var appt *entities.Appointment
	switch d.Mode {
	case entities.BookingModeReschedule:
		appt, err = s.appointments.Reschedule(ctx, d.SourceAppointmentID, RescheduleRequest{
			Date:  d.Date,
			Time:  d.Time,
			Notes: d.Notes,
		}, actor)
	case entities.BookingModeRebook:
		appt, err = s.appointments.Rebook(ctx, d.SourceAppointmentID, RebookRequest{
			DoctorID: d.DoctorID,
			Date:     d.Date,
			Time:     d.Time,
			Notes:    d.Notes,
		}, actor)
	default:
		appt, err = s.appointments.Book(ctx, BookingRequest{
			DoctorID:  d.DoctorID,
			Specialty: d.Specialty,
			Date:      d.Date,
			Time:      d.Time,
			Notes:     d.Notes,
		}, actor)
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, draftKey(d.ID)); err != nil {
		log.Warn().Err(err).Str("draft_id", d.ID).Msg("Failed to discard confirmed booking draft")
	}
	return appt, nil
}

// Discard drops a draft
func (s *WizardService) Discard(ctx context.Context, id string, actor *entities.Account) error {
	if _, err := s.load(ctx, id, actor); err != nil {
		return err
	}
	return s.cache.Delete(ctx, draftKey(id))
}
