package utils

import (
	"time"
)

const DateLayout = "2006-01-02"

// LoadUserLocation resolves an IANA timezone, treating "" as UTC.
func LoadUserLocation(userTimezone string) (*time.Location, error) {
	if userTimezone == "" {
		userTimezone = "UTC"
	}
	return time.LoadLocation(userTimezone)
}

// IsValidTimezone reports whether the name resolves to a known location.
func IsValidTimezone(timezone string) bool {
	if timezone == "" {
		return false
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

// LocalDate converts an instant into the user's timezone and returns the
// calendar date. Unknown timezones fall back to UTC.
func LocalDate(instant time.Time, userTimezone string) string {
	loc, err := LoadUserLocation(userTimezone)
	if err != nil {
		loc = time.UTC
	}
	return instant.In(loc).Format(DateLayout)
}

