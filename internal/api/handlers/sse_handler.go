package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

const defaultHeartbeat = 30 * time.Second

// SSEHandler handles Server-Sent Events for real-time appointment updates
type SSEHandler struct {
	eventBus  providers.EventBus
	metrics   *observability.Metrics
	heartbeat time.Duration
	clients   map[string]map[chan *entities.AppointmentEvent]bool // channel -> clients
	mu        sync.RWMutex
}

// NewSSEHandler creates a new SSE handler. metrics may be nil.
func NewSSEHandler(eventBus providers.EventBus, metrics *observability.Metrics) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		metrics:   metrics,
		heartbeat: defaultHeartbeat,
		clients:   make(map[string]map[chan *entities.AppointmentEvent]bool),
	}
}

// WithHeartbeat sets the keep-alive interval
func (h *SSEHandler) WithHeartbeat(d time.Duration) *SSEHandler {
	h.heartbeat = d
	return h
}

// channelFor picks the stream an account may follow: patients and doctors
// see their own appointments, admins see everything
func channelFor(actor *entities.Account) (string, error) {
	switch actor.Role {
	case entities.RolePatient:
		return providers.GetPatientChannel(actor.ID), nil
	case entities.RoleDoctor:
		if actor.DoctorID == 0 {
			return "", apperrors.NewForbiddenError("doctor account is not linked to a catalog doctor")
		}
		return providers.GetDoctorChannel(actor.DoctorID), nil
	case entities.RoleAdmin:
		return providers.EventChannelAppointments, nil
	}
	return "", apperrors.NewForbiddenError("unknown role")
}

// StreamAppointments handles GET /api/stream/appointments
func (h *SSEHandler) StreamAppointments(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		WriteError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}
	channel, err := channelFor(actor)
	if err != nil {
		WriteError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, apperrors.NewInternalError("streaming not supported", nil))
		return
	}

	ctx := r.Context()
	eventChan, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		WriteError(w, apperrors.NewInternalError("failed to subscribe to appointment updates", err))
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	clientChan := make(chan *entities.AppointmentEvent, 10)
	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	observability.RecordStreamDelta(ctx, h.metrics, string(actor.Role), 1)
	defer observability.RecordStreamDelta(context.WithoutCancel(ctx), h.metrics, string(actor.Role), -1)

	h.sendEvent(w, "connected", map[string]interface{}{
		"channel":   channel,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	go h.forwardEvents(ctx, eventChan, clientChan)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("channel", channel).Int64("user_id", actor.ID).Msg("Client disconnected from appointment stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// forwardEvents forwards events from the event bus to a client channel
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.AppointmentEvent, clientChan chan<- *entities.AppointmentEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				// Client channel full, skip event
			}
		}
	}
}

func (h *SSEHandler) registerClient(channel string, clientChan chan *entities.AppointmentEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.AppointmentEvent]bool)
	}
	h.clients[channel][clientChan] = true
	log.Debug().Str("channel", channel).Int("clients", len(h.clients[channel])).Msg("Client registered")
}

func (h *SSEHandler) unregisterClient(channel string, clientChan chan *entities.AppointmentEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[channel]; ok {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

// ClientCount returns the number of open streams
func (h *SSEHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to marshal SSE event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
