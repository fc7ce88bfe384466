package services

import (
	"fmt"
	"time"

	"github.com/textjournal/backend/internal/utils"
)

// TimezoneService answers calendar questions in a user's timezone
type TimezoneService struct {
	now func() time.Time
}

// NewTimezoneService creates a new timezone service
func NewTimezoneService(now func() time.Time) *TimezoneService {
	if now == nil {
		now = time.Now
	}
	return &TimezoneService{now: now}
}

// ConvertFromUTC converts a UTC time to user's timezone
func (ts *TimezoneService) ConvertFromUTC(utcTime time.Time, userTimezone string) (time.Time, error) {
	loc, err := utils.LoadUserLocation(userTimezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %s: %w", userTimezone, err)
	}
	return utcTime.In(loc), nil
}

// CurrentUserDate is today's calendar date for the user.
func (ts *TimezoneService) CurrentUserDate(userTimezone string) string {
	return utils.LocalDate(ts.now(), userTimezone)
}

// PreviousDate returns the calendar day before date (YYYY-MM-DD).
func PreviousDate(date string) (string, error) {
	d, err := time.Parse(utils.DateLayout, date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, -1).Format(utils.DateLayout), nil
}
