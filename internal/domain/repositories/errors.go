package repositories

import (
	"fmt"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// SlotTakenMessage is shown when a doctor slot already has a live appointment
const SlotTakenMessage = "this time slot is already booked, please choose another"

// NewSlotConflictError reports that a slot is held by another appointment
func NewSlotConflictError() *apperrors.AppError {
	return apperrors.NewConflictError(SlotTakenMessage)
}

// NewStatusConflictError reports that a conditional transition found an unexpected status
func NewStatusConflictError(id int64, current entities.AppointmentStatus) *apperrors.AppError {
	return apperrors.NewConflictError(fmt.Sprintf("appointment %d is %s", id, current))
}

// NewDuplicatePatientCodeError wraps ErrDuplicatePatientCode as a CONFLICT AppError
func NewDuplicatePatientCodeError(code string) *apperrors.AppError {
	return &apperrors.AppError{
		Type:    apperrors.ErrorTypeConflict,
		Message: fmt.Sprintf("patient code %s already assigned", code),
		Err:     ErrDuplicatePatientCode,
	}
}

// NewDuplicateEmailError reports an email already used by another account
func NewDuplicateEmailError() *apperrors.AppError {
	return apperrors.NewConflictError("email is already registered")
}

// StatusIn reports whether s is one of statuses
func StatusIn(s entities.AppointmentStatus, statuses []entities.AppointmentStatus) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}
