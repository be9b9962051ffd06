// Package recurrence expands a recurring-booking template into the
// calendar dates of its concrete instances.
package recurrence

import (
	"errors"
	"time"

	"github.com/example/tutoring-agency/internal/timeslot"
)

// Frequency represents supported recurrence cadences.
type Frequency int

const (
	// FrequencyUnspecified indicates the cadence is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyWeekly advances the search window by 7 days per cycle.
	FrequencyWeekly
	// FrequencyBiweekly advances the search window by 14 days per cycle.
	FrequencyBiweekly
)

// String renders the cadence in its wire form.
func (f Frequency) String() string {
	switch f {
	case FrequencyWeekly:
		return "weekly"
	case FrequencyBiweekly:
		return "biweekly"
	default:
		return "unspecified"
	}
}

// ParseFrequency maps the wire form back to a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch value {
	case "weekly":
		return FrequencyWeekly, nil
	case "biweekly":
		return FrequencyBiweekly, nil
	default:
		return FrequencyUnspecified, ErrInvalidFrequency
	}
}

// ErrInvalidFrequency indicates the cadence is not weekly or biweekly.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the terminal date precedes the series start.
var ErrInvalidWindow = errors.New("recurrence: end date precedes series start")

// ErrNoWeekdays indicates the pattern selects no weekdays.
var ErrNoWeekdays = errors.New("recurrence: at least one weekday is required")

// ErrInvalidWeekday indicates a weekday outside Sunday..Saturday.
var ErrInvalidWeekday = errors.New("recurrence: weekday must be between 0 and 6")

// Pattern describes how a template session repeats. EndDate is
// inclusive; Weekdays uses time.Weekday numbering (Sunday = 0).
type Pattern struct {
	Frequency Frequency
	EndDate   time.Time
	Weekdays  []time.Weekday
}

// Validate checks the pattern against the given series start date.
func (p Pattern) Validate(seriesStart time.Time) error {
	if p.Frequency != FrequencyWeekly && p.Frequency != FrequencyBiweekly {
		return ErrInvalidFrequency
	}
	if p.EndDate.IsZero() || timeslot.NormalizeDate(p.EndDate).Before(timeslot.NormalizeDate(seriesStart)) {
		return ErrInvalidWindow
	}
	if len(p.Weekdays) == 0 {
		return ErrNoWeekdays
	}
	for _, day := range p.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			return ErrInvalidWeekday
		}
	}
	return nil
}

func (p Pattern) step() int {
	if p.Frequency == FrequencyBiweekly {
		return 14
	}
	return 7
}

// Expand produces the ordered calendar dates of the series.
//
// Starting at the template's date, a 7-day window is evaluated and
// every selected weekday inside it emits one date; the window then
// advances by the cadence step (7 days weekly, 14 biweekly) until it
// passes the inclusive terminal date. The result is deterministic for
// identical inputs: re-running yields the same set of dates.
func Expand(seriesStart time.Time, pattern Pattern) ([]time.Time, error) {
	if err := pattern.Validate(seriesStart); err != nil {
		return nil, err
	}

	start := timeslot.NormalizeDate(seriesStart)
	end := timeslot.NormalizeDate(pattern.EndDate)

	selected := make(map[time.Weekday]struct{}, len(pattern.Weekdays))
	for _, day := range pattern.Weekdays {
		selected[day] = struct{}{}
	}

	dates := make([]time.Time, 0)
	for windowStart := start; !windowStart.After(end); windowStart = windowStart.AddDate(0, 0, pattern.step()) {
		for offset := 0; offset < 7; offset++ {
			day := windowStart.AddDate(0, 0, offset)
			if day.After(end) {
				break
			}
			if _, ok := selected[day.Weekday()]; ok {
				dates = append(dates, day)
			}
		}
	}

	return dates, nil
}
