package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateOnlyLayout is the calendar date form accepted next to RFC3339.
const DateOnlyLayout = "2006-01-02"

// Now returns the current time in UTC timezone
func Now() time.Time {
	return time.Now().UTC()
}

// FormatISO8601 formats a time.Time to ISO8601 format in UTC
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseFlexibleTime parses RFC3339 (with or without fractional seconds) or a
// bare YYYY-MM-DD date, which is read as midnight UTC. The result is in UTC.
func ParseFlexibleTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, DateOnlyLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q, want RFC3339 or %s", value, DateOnlyLayout)
}

// StartOfDay truncates t to midnight in UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
