package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
)

var (
	bookingCountersOnce     sync.Once
	bookedCounter           metric.Int64Counter
	overdueCompletedCounter metric.Int64Counter
)

func initBookingCounters() {
	meter := otel.Meter("github.com/zatekoja/hospital-booking/backend/appointments")
	if c, err := meter.Int64Counter(
		"appointments.booked",
		metric.WithDescription("Number of appointments created, by booking mode"),
	); err == nil {
		bookedCounter = c
	}
	if c, err := meter.Int64Counter(
		"appointments.overdue_completed",
		metric.WithDescription("Number of upcoming appointments auto-completed by the overdue sweep"),
	); err == nil {
		overdueCompletedCounter = c
	}
}

func recordBooked(ctx context.Context, mode entities.BookingMode) {
	bookingCountersOnce.Do(initBookingCounters)
	if bookedCounter != nil {
		bookedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("booking.mode", string(mode))))
	}
}

func recordOverdueCompleted(ctx context.Context, n int) {
	if n == 0 {
		return
	}
	bookingCountersOnce.Do(initBookingCounters)
	if overdueCompletedCounter != nil {
		overdueCompletedCounter.Add(ctx, int64(n))
	}
}

// eventPublisher announces appointment changes. Delivery is best effort;
// a failed publish never fails the mutation that caused it.
type eventPublisher struct {
	bus providers.EventBus
}

func (p eventPublisher) publish(ctx context.Context, eventType entities.AppointmentEventType, a *entities.Appointment) {
	if p.bus == nil || a == nil {
		return
	}
	event := entities.NewAppointmentEvent(eventType, a)
	for _, channel := range providers.ChannelsFor(event) {
		if err := p.bus.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).
				Str("channel", channel).
				Int64("appointment_id", a.ID).
				Msg("Failed to publish appointment event")
		}
	}
}
