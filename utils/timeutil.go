package utils

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimezone is the fallback zone for user-visible hour formatting.
const DefaultTimezone = "Africa/Nairobi"

// LoadLocation resolves an IANA zone name, falling back to DefaultTimezone
// and then to UTC.
func LoadLocation(tz string) *time.Location {
	if tz == "" {
		tz = DefaultTimezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		logrus.Warnf("Unknown timezone %q, falling back to %s", tz, DefaultTimezone)
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

// FormatHour renders a timestamp as a localized "h:mm AM/PM" string.
func FormatHour(t time.Time, tz string) string {
	return t.In(LoadLocation(tz)).Format("3:04 PM")
}

// MonthName returns the English month name for a UTC instant, matching the
// month key used on attendance documents.
func MonthName(t time.Time) string {
	return t.UTC().Month().String()
}

// AgeMinutes returns the whole minutes elapsed between two instants, floored.
func AgeMinutes(now, then time.Time) int {
	return int(now.Sub(then).Minutes())
}
