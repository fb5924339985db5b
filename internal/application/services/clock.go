package services

import (
	"time"

	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// DateLayout is the wire format of appointment dates
const DateLayout = "2006-01-02"

// Clock yields the current time in the booking timezone
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock creates a clock for loc. now may be nil to use time.Now.
func NewClock(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now, loc: loc}
}

// Now returns the current time in the booking timezone
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the booking timezone
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today returns the current date as YYYY-MM-DD
func (c *Clock) Today() string {
	return c.Now().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date at midnight in the booking timezone
func (c *Clock) ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("invalid date, expected YYYY-MM-DD")
	}
	return t, nil
}

// DaysSince returns the whole days from date to today, both at midnight.
// Positive values are in the past.
func (c *Clock) DaysSince(date string) (int, error) {
	d, err := c.ParseDate(date)
	if err != nil {
		return 0, err
	}
	now := c.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	// count calendar days, not 24h periods
	return int(civilDays(today) - civilDays(d)), nil
}

// AddDays returns date shifted by n days
func (c *Clock) AddDays(date string, n int) (string, error) {
	d, err := c.ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(DateLayout), nil
}

// SlotStarted reports whether the slot starting at hhmm on date has begun
func (c *Clock) SlotStarted(date, hhmm string) bool {
	start, err := time.ParseInLocation(DateLayout+" 15:04", date+" "+hhmm, c.loc)
	if err != nil {
		return false
	}
	return !c.Now().Before(start)
}

func civilDays(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}
