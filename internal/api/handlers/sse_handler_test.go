package handlers_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/events"
	"github.com/zatekoja/hospital-booking/backend/internal/api/handlers"
	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
)

// streamServer serves the SSE handler with actor injected in place of a session lookup
func streamServer(t *testing.T, h *handlers.SSEHandler, actor *entities.Account) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor != nil {
			r = r.WithContext(middleware.WithActor(r.Context(), actor, "token"))
		}
		h.StreamAppointments(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// readEvent returns the next "event:" name from the stream
func readEvent(t *testing.T, sc *bufio.Scanner) string {
	t.Helper()
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event: ") {
			return strings.TrimPrefix(line, "event: ")
		}
	}
	require.NoError(t, sc.Err())
	t.Fatal("stream ended")
	return ""
}

func openStream(t *testing.T, url string) (*http.Response, *bufio.Scanner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp, bufio.NewScanner(resp.Body)
}

func TestSSEHandler_StreamAppointments(t *testing.T) {
	// Arrange
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus, nil)
	srv := streamServer(t, handler, patient)

	// Act
	resp, sc := openStream(t, srv.URL)

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "connected", readEvent(t, sc))
	assert.Equal(t, 1, handler.ClientCount())

	event := entities.NewAppointmentEvent(entities.AppointmentEventBooked, &entities.Appointment{ID: 9, PatientID: patient.ID, DoctorID: 1})
	other := entities.NewAppointmentEvent(entities.AppointmentEventBooked, &entities.Appointment{ID: 10, PatientID: 99, DoctorID: 1})
	require.NoError(t, bus.Publish(context.Background(), providers.GetPatientChannel(99), other))
	require.NoError(t, bus.Publish(context.Background(), providers.GetPatientChannel(patient.ID), event))

	assert.Equal(t, string(entities.AppointmentEventBooked), readEvent(t, sc))
	require.True(t, sc.Scan())
	assert.Contains(t, sc.Text(), `"appointment_id":9`)
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus, nil).WithHeartbeat(20 * time.Millisecond)
	srv := streamServer(t, handler, doctor)

	_, sc := openStream(t, srv.URL)

	assert.Equal(t, "connected", readEvent(t, sc))
	assert.Equal(t, "heartbeat", readEvent(t, sc))
}

func TestSSEHandler_Rejections(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus, nil)

	t.Run("no actor", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.StreamAppointments(w, httptest.NewRequest(http.MethodGet, "/api/stream/appointments", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("doctor account without a catalog doctor", func(t *testing.T) {
		unlinked := &entities.Account{ID: 5, Role: entities.RoleDoctor}
		req := httptest.NewRequest(http.MethodGet, "/api/stream/appointments", nil)
		req = req.WithContext(middleware.WithActor(req.Context(), unlinked, "token"))
		w := httptest.NewRecorder()

		handler.StreamAppointments(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
