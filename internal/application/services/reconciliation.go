package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// ReconciliationService completes upcoming appointments whose date has passed
type ReconciliationService struct {
	repo   repositories.AppointmentRepository
	clock  *Clock
	events eventPublisher
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(repo repositories.AppointmentRepository, clock *Clock, bus providers.EventBus) *ReconciliationService {
	return &ReconciliationService{repo: repo, clock: clock, events: eventPublisher{bus: bus}}
}

// Sweep completes every overdue upcoming appointment in appointments and
// replaces it in the slice with the stored result. It returns how many changed.
func (s *ReconciliationService) Sweep(ctx context.Context, appointments []*entities.Appointment) (int, error) {
	changed := 0
	for i, a := range appointments {
		if a.Status != entities.AppointmentStatusUpcoming {
			continue
		}
		days, err := s.clock.DaysSince(a.Date)
		if err != nil {
			log.Warn().Int64("appointment_id", a.ID).Str("date", a.Date).Msg("Skipping appointment with unparseable date")
			continue
		}
		if days < 1 {
			continue
		}

		now := s.clock.Now()
		updated, err := s.repo.TransitionStatus(ctx, a.ID,
			[]entities.AppointmentStatus{entities.AppointmentStatusUpcoming},
			entities.AppointmentStatusCompleted,
			func(x *entities.Appointment) {
				x.OverdueAutoCompleted = true
				x.CompletionReason = entities.CompletionReasonOverdue
				x.UpdatedAt = now
			},
		)
		if err != nil {
			// another writer moved it first
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) || apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				continue
			}
			return changed, err
		}

		appointments[i] = updated
		changed++
		s.events.publish(ctx, entities.AppointmentEventStatus, updated)
	}

	if changed > 0 {
		recordOverdueCompleted(ctx, changed)
		log.Info().Int("count", changed).Msg("Auto-completed overdue appointments")
	}
	return changed, nil
}

// SweepAll runs Sweep over every upcoming appointment dated before today
func (s *ReconciliationService) SweepAll(ctx context.Context) (int, error) {
	yesterday, err := s.clock.AddDays(s.clock.Today(), -1)
	if err != nil {
		return 0, err
	}
	appointments, err := s.repo.List(ctx, repositories.AppointmentFilter{
		Statuses: []entities.AppointmentStatus{entities.AppointmentStatusUpcoming},
		DateTo:   yesterday,
	})
	if err != nil {
		return 0, err
	}
	return s.Sweep(ctx, appointments)
}
