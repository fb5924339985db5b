package entities

import "time"

// BookingMode selects what the wizard commits
type BookingMode string

const (
	BookingModePlain      BookingMode = "plain"
	BookingModeReschedule BookingMode = "reschedule"
	BookingModeRebook     BookingMode = "rebook"
)

// BookingStep is a wizard position
type BookingStep int

const (
	StepSpecialty BookingStep = 1
	StepDoctor    BookingStep = 2
	StepDateTime  BookingStep = 3
	StepConfirm   BookingStep = 4
)

// Valid reports whether s is one of the four wizard steps
func (s BookingStep) Valid() bool {
	return s >= StepSpecialty && s <= StepConfirm
}

// BookingDraft is the in-progress state of one booking wizard
type BookingDraft struct {
	ID        string      `json:"id"`
	Mode      BookingMode `json:"mode"`
	Step      BookingStep `json:"step"`
	PatientID int64       `json:"patientId"`

	Specialty  string `json:"specialty,omitempty"`
	DoctorID   int64  `json:"doctorId,omitempty"`
	HospitalID int64  `json:"hospitalId,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Notes      string `json:"notes,omitempty"`

	// SourceAppointmentID is the appointment being rescheduled or rebooked
	SourceAppointmentID int64 `json:"sourceAppointmentId,omitempty"`
	// PinnedDate and PinnedTime hold the slot a reschedule starts from
	PinnedDate string `json:"pinnedDate,omitempty"`
	PinnedTime string `json:"pinnedTime,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Locked reports whether specialty and doctor are fixed
func (d *BookingDraft) Locked() bool {
	return d.Mode == BookingModeReschedule
}

// IsPinned reports whether the given slot is the one the reschedule started from
func (d *BookingDraft) IsPinned(date, slot string) bool {
	return d.Mode == BookingModeReschedule && d.PinnedDate == date && d.PinnedTime == slot
}

// BookingSelection is a partial update applied to a draft.
// Nil fields are left untouched.
type BookingSelection struct {
	Specialty *string `json:"specialty,omitempty"`
	DoctorID  *int64  `json:"doctorId,omitempty"`
	Date      *string `json:"date,omitempty"`
	Time      *string `json:"time,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}
