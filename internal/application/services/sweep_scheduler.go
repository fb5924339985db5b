package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SweepScheduler runs the overdue sweep on a cron schedule
type SweepScheduler struct {
	cron       *cron.Cron
	reconciler *ReconciliationService
	timeout    time.Duration
}

// NewSweepScheduler registers the sweep under spec, evaluated in loc
func NewSweepScheduler(reconciler *ReconciliationService, spec string, loc *time.Location) (*SweepScheduler, error) {
	s := &SweepScheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reconciler: reconciler,
		timeout:    time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *SweepScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.reconciler.SweepAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled overdue sweep failed")
		return
	}
	log.Info().Int("completed", n).Msg("Scheduled overdue sweep finished")
}

// Start begins running the schedule in the background
func (s *SweepScheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end
func (s *SweepScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
