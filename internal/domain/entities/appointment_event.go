package entities

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentEventType represents the kind of appointment change
type AppointmentEventType string

const (
	AppointmentEventBooked      AppointmentEventType = "appointment_booked"
	AppointmentEventRescheduled AppointmentEventType = "appointment_rescheduled"
	AppointmentEventCancelled   AppointmentEventType = "appointment_cancelled"
	AppointmentEventStatus      AppointmentEventType = "appointment_status_changed"
	AppointmentEventReviewed    AppointmentEventType = "appointment_reviewed"
	AppointmentEventDeleted     AppointmentEventType = "appointment_deleted"
)

// AppointmentEvent notifies open dashboards that an appointment changed
type AppointmentEvent struct {
	ID            string               `json:"id"`
	EventType     AppointmentEventType `json:"event_type"`
	AppointmentID int64                `json:"appointment_id"`
	PatientID     int64                `json:"patient_id"`
	DoctorID      int64                `json:"doctor_id"`
	HospitalID    int64                `json:"hospital_id"`
	Status        AppointmentStatus    `json:"status"`
	Timestamp     time.Time            `json:"timestamp"`
}

// NewAppointmentEvent creates an event describing the current state of a
func NewAppointmentEvent(eventType AppointmentEventType, a *Appointment) *AppointmentEvent {
	return &AppointmentEvent{
		ID:            uuid.NewString(),
		EventType:     eventType,
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		HospitalID:    a.HospitalID,
		Status:        a.Status,
		Timestamp:     time.Now(),
	}
}
