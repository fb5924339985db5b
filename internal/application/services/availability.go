package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// bookedThreshold is the share of a day's slots at which a date shows as booked
const bookedThreshold = 0.8

// liveStatuses are the statuses that hold a slot
var liveStatuses = []entities.AppointmentStatus{
	entities.AppointmentStatusUpcoming,
	entities.AppointmentStatusOngoing,
	entities.AppointmentStatusExamined,
	entities.AppointmentStatusCompleted,
}

// AvailabilityChecker answers slot and calendar questions for a doctor
type AvailabilityChecker struct {
	repo    repositories.AppointmentRepository
	catalog *Catalog
	clock   *Clock
}

// NewAvailabilityChecker creates a new availability checker
func NewAvailabilityChecker(repo repositories.AppointmentRepository, catalog *Catalog, clock *Clock) *AvailabilityChecker {
	return &AvailabilityChecker{repo: repo, catalog: catalog, clock: clock}
}

func (c *AvailabilityChecker) liveOn(ctx context.Context, doctorID int64, date string) ([]*entities.Appointment, error) {
	return c.repo.List(ctx, repositories.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
		Statuses: liveStatuses,
	})
}

// IsSlotAvailable reports whether no live appointment other than excludeID holds the slot
func (c *AvailabilityChecker) IsSlotAvailable(ctx context.Context, doctorID int64, date, slot string, excludeID int64) (bool, error) {
	appointments, err := c.liveOn(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for _, a := range appointments {
		if a.Time == slot && a.ID != excludeID {
			return false, nil
		}
	}
	return true, nil
}

// Slots annotates the daily grid for a doctor and date. excludeID is ignored
// when computing Booked; pinnedTime marks the slot a reschedule started from.
func (c *AvailabilityChecker) Slots(ctx context.Context, doctorID int64, date string, excludeID int64, pinnedTime string) ([]entities.SlotView, error) {
	daysAgo, err := c.clock.DaysSince(date)
	if err != nil {
		return nil, err
	}
	appointments, err := c.liveOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(appointments))
	for _, a := range appointments {
		if a.ID != excludeID {
			held[a.Time] = true
		}
	}

	grid := c.catalog.Slots()
	views := make([]entities.SlotView, 0, len(grid))
	for _, s := range grid {
		past := daysAgo > 0 || (daysAgo == 0 && c.clock.SlotStarted(date, s.Start))
		v := entities.SlotView{
			TimeSlot: s,
			Label:    s.Label(),
			Booked:   held[s.Start],
			Past:     past,
			Pinned:   pinnedTime != "" && s.Start == pinnedTime,
		}
		v.Available = !v.Booked && !v.Past
		views = append(views, v)
	}
	return views, nil
}

// DateStatus classifies one date for calendar display
func (c *AvailabilityChecker) DateStatus(ctx context.Context, doctorID int64, date string) (entities.DateStatus, error) {
	daysAgo, err := c.clock.DaysSince(date)
	if err != nil {
		return "", err
	}
	if daysAgo > 0 {
		return entities.DateStatusPast, nil
	}
	appointments, err := c.liveOn(ctx, doctorID, date)
	if err != nil {
		return "", err
	}
	return c.classify(len(appointments)), nil
}

func (c *AvailabilityChecker) classify(booked int) entities.DateStatus {
	if float64(booked) < float64(len(c.catalog.Slots()))*bookedThreshold {
		return entities.DateStatusAvailable
	}
	return entities.DateStatusBooked
}

// Calendar returns one entry per day of month (YYYY-MM) for a doctor
func (c *AvailabilityChecker) Calendar(ctx context.Context, doctorID int64, month string) ([]entities.CalendarDay, error) {
	first, err := time.ParseInLocation("2006-01", month, c.clock.Location())
	if err != nil {
		return nil, apperrors.NewValidationError("invalid month, expected YYYY-MM")
	}
	last := first.AddDate(0, 1, -1)

	appointments, err := c.repo.List(ctx, repositories.AppointmentFilter{
		DoctorID: doctorID,
		DateFrom: first.Format(DateLayout),
		DateTo:   last.Format(DateLayout),
		Statuses: liveStatuses,
	})
	if err != nil {
		return nil, err
	}
	perDay := make(map[string]int)
	for _, a := range appointments {
		perDay[a.Date]++
	}

	today := c.clock.Today()
	days := make([]entities.CalendarDay, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		day := entities.CalendarDay{Date: date, Booked: perDay[date], IsToday: date == today}
		if date < today {
			day.Status = entities.DateStatusPast
		} else {
			day.Status = c.classify(day.Booked)
		}
		days = append(days, day)
	}
	return days, nil
}

// CheckBookable validates that doctorID can be booked at date/slot,
// ignoring the appointment excludeID. It returns the grid slot on success.
func (c *AvailabilityChecker) CheckBookable(ctx context.Context, doctorID int64, date, slot string, excludeID int64) (entities.TimeSlot, error) {
	ts, err := c.catalog.Slot(slot)
	if err != nil {
		return entities.TimeSlot{}, err
	}
	daysAgo, err := c.clock.DaysSince(date)
	if err != nil {
		return entities.TimeSlot{}, err
	}
	if daysAgo > 0 {
		return entities.TimeSlot{}, apperrors.NewValidationError("cannot book a date in the past")
	}
	if daysAgo == 0 && c.clock.SlotStarted(date, slot) {
		return entities.TimeSlot{}, apperrors.NewValidationError(fmt.Sprintf("time slot %s has already passed", ts.Label()))
	}

	ok, err := c.IsSlotAvailable(ctx, doctorID, date, slot, excludeID)
	if err != nil {
		return entities.TimeSlot{}, err
	}
	if !ok {
		return entities.TimeSlot{}, repositories.NewSlotConflictError()
	}
	return ts, nil
}
