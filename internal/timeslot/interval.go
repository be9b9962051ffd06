// Package timeslot models same-day booking intervals at minute
// granularity, plus the civil-date conventions shared across the
// scheduling and payment engines.
package timeslot

import "fmt"

const minutesPerDay = 24 * 60

// MalformedTimeError reports a time-of-day value that does not satisfy
// the zero-padded 24-hour "HH:MM" pattern, or an interval whose end
// does not come strictly after its start.
type MalformedTimeError struct {
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *MalformedTimeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Value == "" {
		return fmt.Sprintf("malformed time: %s", e.Reason)
	}
	return fmt.Sprintf("malformed time %q: %s", e.Value, e.Reason)
}

// Interval is a same-day time range stored as minutes from midnight.
// The zero value is not a valid interval; construct via ParseInterval
// or NewInterval.
type Interval struct {
	StartMinute int
	EndMinute   int
}

// ParseInterval builds an Interval from two "HH:MM" strings. It fails
// with *MalformedTimeError when either value breaks the pattern or the
// end is not strictly after the start.
func ParseInterval(start, end string) (Interval, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return Interval{}, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(startMin, endMin)
}

// NewInterval validates minute-of-day bounds and strict ordering.
func NewInterval(startMinute, endMinute int) (Interval, error) {
	if startMinute < 0 || startMinute >= minutesPerDay {
		return Interval{}, &MalformedTimeError{Value: formatClock(startMinute), Reason: "start outside the day"}
	}
	if endMinute < 0 || endMinute > minutesPerDay {
		return Interval{}, &MalformedTimeError{Value: formatClock(endMinute), Reason: "end outside the day"}
	}
	if endMinute <= startMinute {
		return Interval{}, &MalformedTimeError{
			Value:  fmt.Sprintf("%s-%s", formatClock(startMinute), formatClock(endMinute)),
			Reason: "end must be after start",
		}
	}
	return Interval{StartMinute: startMinute, EndMinute: endMinute}, nil
}

// DurationMinutes returns the interval length in minutes.
func (i Interval) DurationMinutes() int {
	return i.EndMinute - i.StartMinute
}

// DurationHours returns the interval length in hours. The value is
// derived from the bounds on every call; it is never stored.
func (i Interval) DurationHours() float64 {
	return float64(i.DurationMinutes()) / 60
}

// Overlaps reports whether two intervals share any time. The test is
// half-open: an interval ending at 10:00 does not overlap one starting
// at 10:00.
func (i Interval) Overlaps(other Interval) bool {
	return other.StartMinute < i.EndMinute && other.EndMinute > i.StartMinute
}

// Start renders the interval start as "HH:MM".
func (i Interval) Start() string { return formatClock(i.StartMinute) }

// End renders the interval end as "HH:MM".
func (i Interval) End() string { return formatClock(i.EndMinute) }

// String renders the interval as "HH:MM-HH:MM".
func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", i.Start(), i.End())
}

// IsZero reports whether the interval is the unset zero value.
func (i Interval) IsZero() bool {
	return i.StartMinute == 0 && i.EndMinute == 0
}

func parseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, &MalformedTimeError{Value: value, Reason: "expected HH:MM"}
	}
	hour, ok := parseTwoDigits(value[0], value[1])
	if !ok || hour > 23 {
		return 0, &MalformedTimeError{Value: value, Reason: "expected HH:MM"}
	}
	minute, ok := parseTwoDigits(value[3], value[4])
	if !ok || minute > 59 {
		return 0, &MalformedTimeError{Value: value, Reason: "expected HH:MM"}
	}
	return hour*60 + minute, nil
}

func parseTwoDigits(hi, lo byte) (int, bool) {
	if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
		return 0, false
	}
	return int(hi-'0')*10 + int(lo-'0'), true
}

func formatClock(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}
