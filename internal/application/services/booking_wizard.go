package services

import (
	"context"
	"strings"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// BookingWizard drives a BookingDraft through the four booking steps.
// Every method works on a copy; a failed call leaves the caller's draft untouched.
type BookingWizard struct {
	directory    *DoctorDirectory
	availability *AvailabilityChecker
	clock        *Clock
}

// NewBookingWizard creates a new booking wizard
func NewBookingWizard(directory *DoctorDirectory, availability *AvailabilityChecker, clock *Clock) *BookingWizard {
	return &BookingWizard{directory: directory, availability: availability, clock: clock}
}

func copyDraft(d *entities.BookingDraft) *entities.BookingDraft {
	c := *d
	return &c
}

// excludeID is the appointment a reschedule may overlap with
func excludeID(d *entities.BookingDraft) int64 {
	if d.Mode == entities.BookingModeReschedule {
		return d.SourceAppointmentID
	}
	return 0
}

// Apply merges a selection into the draft. Choosing a specialty clears the
// doctor, date and time; choosing a doctor clears date and time; changing
// the date clears the time.
func (w *BookingWizard) Apply(ctx context.Context, draft *entities.BookingDraft, sel entities.BookingSelection) (*entities.BookingDraft, error) {
	d := copyDraft(draft)

	if sel.Specialty != nil {
		specialty := strings.TrimSpace(*sel.Specialty)
		if specialty != d.Specialty {
			if d.Locked() {
				return nil, apperrors.NewValidationError("specialty cannot be changed when rescheduling")
			}
			d.Specialty = specialty
			d.DoctorID, d.HospitalID = 0, 0
			d.Date, d.Time = "", ""
		}
	}

	if sel.DoctorID != nil && *sel.DoctorID != d.DoctorID {
		if d.Locked() {
			return nil, apperrors.NewValidationError("doctor cannot be changed when rescheduling")
		}
		doctor, err := w.directory.Catalog().Doctor(*sel.DoctorID)
		if err != nil {
			return nil, err
		}
		if d.Specialty != "" && doctor.Specialty != d.Specialty {
			return nil, apperrors.NewValidationError("doctor does not belong to the selected specialty")
		}
		d.Specialty = doctor.Specialty
		d.DoctorID = doctor.ID
		d.HospitalID = doctor.HospitalID
		d.Date, d.Time = "", ""
	}

	if sel.Date != nil && *sel.Date != d.Date {
		if *sel.Date != "" {
			if _, err := w.clock.ParseDate(*sel.Date); err != nil {
				return nil, err
			}
		}
		d.Date = *sel.Date
		d.Time = ""
	}

	if sel.Time != nil {
		if *sel.Time != "" {
			if _, err := w.directory.Catalog().Slot(*sel.Time); err != nil {
				return nil, err
			}
		}
		d.Time = *sel.Time
	}

	if sel.Notes != nil {
		d.Notes = strings.TrimSpace(*sel.Notes)
	}

	d.UpdatedAt = w.clock.Now()
	return d, nil
}

// ValidateStep checks the data a step collects
func (w *BookingWizard) ValidateStep(ctx context.Context, d *entities.BookingDraft, step entities.BookingStep) error {
	switch step {
	case entities.StepSpecialty:
		if d.Specialty == "" {
			return apperrors.NewValidationError("please choose a specialty")
		}
	case entities.StepDoctor:
		if d.DoctorID == 0 {
			return apperrors.NewValidationError("please choose a doctor")
		}
		doctor, err := w.directory.Catalog().Doctor(d.DoctorID)
		if err != nil {
			return err
		}
		if doctor.Specialty != d.Specialty {
			return apperrors.NewValidationError("doctor does not belong to the selected specialty")
		}
		// a reschedule keeps its doctor even after the specialty is retired
		if d.Mode != entities.BookingModeReschedule {
			ok, err := w.directory.IsBookable(ctx, doctor)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NewValidationError(doctor.Name + " is not accepting bookings")
			}
		}
	case entities.StepDateTime:
		if d.Date == "" {
			return apperrors.NewValidationError("please choose a date")
		}
		if d.Time == "" {
			return apperrors.NewValidationError("please choose a time")
		}
		if _, err := w.availability.CheckBookable(ctx, d.DoctorID, d.Date, d.Time, excludeID(d)); err != nil {
			return err
		}
	case entities.StepConfirm:
	default:
		return apperrors.NewValidationError("unknown booking step")
	}
	return nil
}

func (w *BookingWizard) validateBefore(ctx context.Context, d *entities.BookingDraft, step entities.BookingStep) error {
	for s := entities.StepSpecialty; s < step; s++ {
		if err := w.ValidateStep(ctx, d, s); err != nil {
			return err
		}
	}
	return nil
}

// Next validates the current step and advances
func (w *BookingWizard) Next(ctx context.Context, draft *entities.BookingDraft) (*entities.BookingDraft, error) {
	if draft.Step >= entities.StepConfirm {
		return nil, apperrors.NewValidationError("already at the confirmation step")
	}
	if err := w.ValidateStep(ctx, draft, draft.Step); err != nil {
		return nil, err
	}
	d := copyDraft(draft)
	d.Step++
	d.UpdatedAt = w.clock.Now()
	return d, nil
}

// Back returns to the previous step
func (w *BookingWizard) Back(draft *entities.BookingDraft) *entities.BookingDraft {
	d := copyDraft(draft)
	if d.Step > entities.StepSpecialty {
		d.Step--
	}
	d.UpdatedAt = w.clock.Now()
	return d
}

// GoTo jumps to step. Moving backward in plain mode is always allowed;
// otherwise every earlier step must validate.
func (w *BookingWizard) GoTo(ctx context.Context, draft *entities.BookingDraft, step entities.BookingStep) (*entities.BookingDraft, error) {
	if !step.Valid() {
		return nil, apperrors.NewValidationError("unknown booking step")
	}
	backward := step <= draft.Step && draft.Mode == entities.BookingModePlain
	if !backward {
		if err := w.validateBefore(ctx, draft, step); err != nil {
			return nil, err
		}
	}
	d := copyDraft(draft)
	d.Step = step
	d.UpdatedAt = w.clock.Now()
	return d, nil
}

// Ready checks that a draft can be committed
func (w *BookingWizard) Ready(ctx context.Context, d *entities.BookingDraft) error {
	if d.Step != entities.StepConfirm {
		return apperrors.NewValidationError("booking is not ready to confirm")
	}
	return w.validateBefore(ctx, d, entities.StepConfirm)
}
