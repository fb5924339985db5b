package providers

import (
	"context"
	"strconv"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.AppointmentEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AppointmentEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelAppointments carries every appointment change
	EventChannelAppointments = "appointments:updates"

	// EventChannelPatientPrefix is the prefix for per-patient channels
	EventChannelPatientPrefix = "appointments:patient:"

	// EventChannelDoctorPrefix is the prefix for per-doctor channels
	EventChannelDoctorPrefix = "appointments:doctor:"
)

// GetPatientChannel returns the channel name for a patient
func GetPatientChannel(patientID int64) string {
	return EventChannelPatientPrefix + strconv.FormatInt(patientID, 10)
}

// GetDoctorChannel returns the channel name for a catalog doctor
func GetDoctorChannel(doctorID int64) string {
	return EventChannelDoctorPrefix + strconv.FormatInt(doctorID, 10)
}

// ChannelsFor lists every channel an event is published on
func ChannelsFor(event *entities.AppointmentEvent) []string {
	return []string{
		EventChannelAppointments,
		GetPatientChannel(event.PatientID),
		GetDoctorChannel(event.DoctorID),
	}
}
