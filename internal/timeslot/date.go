package timeslot

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" value into the canonical midnight
// UTC representation used for session dates throughout the store.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

// FormatDate renders a date in the "YYYY-MM-DD" wire format.
func FormatDate(date time.Time) string {
	return date.UTC().Format(DateLayout)
}

// NormalizeDate truncates any timestamp to its midnight UTC calendar
// date so that equality comparisons ignore time-of-day.
func NormalizeDate(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same UTC calendar
// date.
func SameDay(a, b time.Time) bool {
	return NormalizeDate(a).Equal(NormalizeDate(b))
}
