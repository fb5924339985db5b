package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusUpcoming  AppointmentStatus = "upcoming"
	AppointmentStatusOngoing   AppointmentStatus = "ongoing"
	AppointmentStatusExamined  AppointmentStatus = "examined"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// CompletionReason records why an appointment reached the completed state
type CompletionReason string

const (
	CompletionReasonNone    CompletionReason = ""
	CompletionReasonManual  CompletionReason = "manual"
	CompletionReasonOverdue CompletionReason = "overdue"
)

var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusUpcoming: {AppointmentStatusOngoing, AppointmentStatusCompleted, AppointmentStatusCancelled},
	AppointmentStatusOngoing:  {AppointmentStatusExamined, AppointmentStatusCompleted},
	AppointmentStatusExamined: {AppointmentStatusCompleted},
}

// Valid reports whether s is a known status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusUpcoming, AppointmentStatusOngoing, AppointmentStatusExamined,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s AppointmentStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// Appointment represents a booking of one doctor slot by one patient.
// Patient, doctor and hospital names are snapshots taken at booking time.
type Appointment struct {
	ID           int64             `json:"id" db:"id"`
	PatientID    int64             `json:"patientId" db:"patient_id"`
	PatientName  string            `json:"patientName" db:"patient_name"`
	PatientCode  string            `json:"patientCode" db:"patient_code"`
	DoctorID     int64             `json:"doctorId" db:"doctor_id"`
	DoctorName   string            `json:"doctorName" db:"doctor_name"`
	Specialty    string            `json:"specialty" db:"specialty"`
	HospitalID   int64             `json:"hospitalId" db:"hospital_id"`
	HospitalName string            `json:"hospitalName" db:"hospital_name"`
	Date         string            `json:"date" db:"date"`
	Time         string            `json:"time" db:"time"`
	TimeRange    string            `json:"timeRange" db:"time_range"`
	Status       AppointmentStatus `json:"status" db:"status"`
	Notes        string            `json:"notes" db:"notes"`

	Rating *int   `json:"rating,omitempty" db:"rating"` // 1-5
	Review string `json:"review,omitempty" db:"review"`

	OverdueAutoCompleted bool             `json:"overdueAutoCompleted" db:"overdue_auto_completed"`
	CompletionReason     CompletionReason `json:"completionReason,omitempty" db:"completion_reason"`

	RescheduledAt    *time.Time `json:"rescheduledAt,omitempty" db:"rescheduled_at"`
	OriginalDate     string     `json:"originalDate,omitempty" db:"original_date"`
	OriginalTime     string     `json:"originalTime,omitempty" db:"original_time"`
	RescheduleReason string     `json:"rescheduleReason,omitempty" db:"reschedule_reason"`
	RebookedFrom     *int64     `json:"rebookedFrom,omitempty" db:"rebooked_from"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HoldsSlot reports whether the appointment occupies its doctor slot
func (a *Appointment) HoldsSlot() bool {
	return a.Status != AppointmentStatusCancelled
}

// SlotKey identifies the (doctor, date, time) triple the appointment occupies
func (a *Appointment) SlotKey() SlotKey {
	return SlotKey{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
}

// Clone returns a deep copy
func (a *Appointment) Clone() *Appointment {
	c := *a
	if a.Rating != nil {
		r := *a.Rating
		c.Rating = &r
	}
	if a.RescheduledAt != nil {
		t := *a.RescheduledAt
		c.RescheduledAt = &t
	}
	if a.RebookedFrom != nil {
		id := *a.RebookedFrom
		c.RebookedFrom = &id
	}
	if a.CancelledAt != nil {
		t := *a.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

// SlotKey is the identity used for conflict checks
type SlotKey struct {
	DoctorID int64
	Date     string
	Time     string
}
