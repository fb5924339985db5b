package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/events"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
)

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := events.NewMemoryEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, providers.EventChannelAppointments)
	require.NoError(t, err)

	event := entities.NewAppointmentEvent(entities.AppointmentEventBooked, &entities.Appointment{ID: 7, PatientID: 1, DoctorID: 2})
	require.NoError(t, bus.Publish(ctx, providers.EventChannelAppointments, event))

	select {
	case got := <-ch:
		assert.Equal(t, int64(7), got.AppointmentID)
		assert.Equal(t, entities.AppointmentEventBooked, got.EventType)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestMemoryEventBus_ContextCancelClosesChannel(t *testing.T) {
	bus := events.NewMemoryEventBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, "appointments:doctor:1")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := events.NewMemoryEventBus()
	ch, err := bus.Subscribe(context.Background(), "x")
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
}
