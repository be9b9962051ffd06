package recurrence

import (
	"errors"
	"testing"
	"time"
)

// monday4March is a Monday, so weekday-anchored expectations stay readable.
var monday4March = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func TestExpand_Weekly(t *testing.T) {
	t.Run("emits every selected weekday per week", func(t *testing.T) {
		pattern := Pattern{
			Frequency: FrequencyWeekly,
			EndDate:   monday4March.AddDate(0, 0, 13),
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
		}

		dates, err := Expand(monday4March, pattern)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}

		want := []time.Time{
			monday4March,
			monday4March.AddDate(0, 0, 2),
			monday4March.AddDate(0, 0, 7),
			monday4March.AddDate(0, 0, 9),
		}
		if len(dates) != len(want) {
			t.Fatalf("expected %d dates, got %d: %v", len(want), len(dates), dates)
		}
		for i, date := range dates {
			if !date.Equal(want[i]) {
				t.Fatalf("date %d: expected %v, got %v", i, want[i], date)
			}
		}
	})

	t.Run("the end date is inclusive", func(t *testing.T) {
		pattern := Pattern{
			Frequency: FrequencyWeekly,
			EndDate:   monday4March.AddDate(0, 0, 7),
			Weekdays:  []time.Weekday{time.Monday},
		}

		dates, err := Expand(monday4March, pattern)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(dates) != 2 {
			t.Fatalf("expected 2 dates, got %d: %v", len(dates), dates)
		}
		if !dates[1].Equal(monday4March.AddDate(0, 0, 7)) {
			t.Fatalf("expected final date on the end date, got %v", dates[1])
		}
	})

	t.Run("a single day window can still match", func(t *testing.T) {
		pattern := Pattern{
			Frequency: FrequencyWeekly,
			EndDate:   monday4March,
			Weekdays:  []time.Weekday{time.Monday},
		}

		dates, err := Expand(monday4March, pattern)
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(dates) != 1 || !dates[0].Equal(monday4March) {
			t.Fatalf("expected just the start date, got %v", dates)
		}
	})
}

func TestExpand_Biweekly(t *testing.T) {
	pattern := Pattern{
		Frequency: FrequencyBiweekly,
		EndDate:   monday4March.AddDate(0, 0, 27),
		Weekdays:  []time.Weekday{time.Tuesday},
	}

	dates, err := Expand(monday4March, pattern)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}

	want := []time.Time{
		monday4March.AddDate(0, 0, 1),
		monday4March.AddDate(0, 0, 15),
	}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(dates), dates)
	}
	for i, date := range dates {
		if !date.Equal(want[i]) {
			t.Fatalf("date %d: expected %v, got %v", i, want[i], date)
		}
	}
}

func TestExpand_Deterministic(t *testing.T) {
	pattern := Pattern{
		Frequency: FrequencyWeekly,
		EndDate:   monday4March.AddDate(0, 0, 20),
		Weekdays:  []time.Weekday{time.Monday, time.Friday},
	}

	first, err := Expand(monday4March, pattern)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	second, err := Expand(monday4March, pattern)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected identical expansions, got %d and %d dates", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("expansion differs at index %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestPattern_Validate(t *testing.T) {
	cases := []struct {
		name    string
		pattern Pattern
		want    error
	}{
		{
			"unspecified frequency",
			Pattern{EndDate: monday4March, Weekdays: []time.Weekday{time.Monday}},
			ErrInvalidFrequency,
		},
		{
			"end before start",
			Pattern{Frequency: FrequencyWeekly, EndDate: monday4March.AddDate(0, 0, -1), Weekdays: []time.Weekday{time.Monday}},
			ErrInvalidWindow,
		},
		{
			"zero end date",
			Pattern{Frequency: FrequencyWeekly, Weekdays: []time.Weekday{time.Monday}},
			ErrInvalidWindow,
		},
		{
			"no weekdays",
			Pattern{Frequency: FrequencyWeekly, EndDate: monday4March},
			ErrNoWeekdays,
		},
		{
			"weekday out of range",
			Pattern{Frequency: FrequencyWeekly, EndDate: monday4March, Weekdays: []time.Weekday{time.Weekday(7)}},
			ErrInvalidWeekday,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pattern.Validate(monday4March)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	t.Run("valid pattern passes", func(t *testing.T) {
		pattern := Pattern{
			Frequency: FrequencyBiweekly,
			EndDate:   monday4March.AddDate(0, 0, 30),
			Weekdays:  []time.Weekday{time.Sunday, time.Saturday},
		}
		if err := pattern.Validate(monday4March); err != nil {
			t.Fatalf("expected valid pattern, got %v", err)
		}
	})
}

func TestParseFrequency(t *testing.T) {
	for value, want := range map[string]Frequency{"weekly": FrequencyWeekly, "biweekly": FrequencyBiweekly} {
		got, err := ParseFrequency(value)
		if err != nil {
			t.Fatalf("ParseFrequency(%q) returned error: %v", value, err)
		}
		if got != want {
			t.Fatalf("ParseFrequency(%q) = %v, want %v", value, got, want)
		}
		if got.String() != value {
			t.Fatalf("String round trip failed for %q: got %q", value, got.String())
		}
	}

	if _, err := ParseFrequency("monthly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}
