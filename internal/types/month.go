// Package types implements special value types shared across the BFA.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month in a specific year.
type Month time.Time

// NewMonth returns the Month for the given year and month.
func NewMonth(year int, month time.Month) Month {
	return Month(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// MonthOf returns the Month in which t occurs, in t's location.
func MonthOf(t time.Time) Month {
	year, month, _ := t.Date()
	return Month(time.Date(year, month, 1, 0, 0, 0, 0, t.Location()))
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return MonthOf(t), nil
}

// String returns the month formatted as YYYY-MM.
func (m Month) String() string {
	t := time.Time(m)
	return fmt.Sprintf("%04d-%02d", t.Year(), t.Month())
}

// Year returns the calendar year.
func (m Month) Year() int {
	return time.Time(m).Year()
}

// Month returns the calendar month.
func (m Month) Month() time.Month {
	return time.Time(m).Month()
}

// AddMonths shifts the month by delta, handling year rollover in both
// directions. delta may be negative.
func (m Month) AddMonths(delta int) Month {
	t := time.Time(m).AddDate(0, delta, 0)
	return MonthOf(t)
}

// Before reports whether m is before other.
func (m Month) Before(other Month) bool {
	return time.Time(m).Before(time.Time(other))
}

// Equal reports whether both values represent the same month.
func (m Month) Equal(other Month) bool {
	return m.Year() == other.Year() && m.Month() == other.Month()
}

// Contains reports whether m falls inside the window starting at start
// and spanning durationMonths. A zero duration means a single month.
func (m Month) Contains(start Month, durationMonths int) bool {
	if durationMonths < 1 {
		durationMonths = 1
	}
	end := start.AddMonths(durationMonths)
	return !m.Before(start) && m.Before(end)
}

// MarshalJSON implements json.Marshaler, producing "YYYY-MM".
func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts "YYYY-MM" and,
// for tolerance with older clients, full RFC3339 timestamps.
func (m *Month) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		return nil
	}

	if parsed, err := ParseMonth(value); err == nil {
		*m = parsed
		return nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fmt.Errorf("invalid month %q", value)
	}
	*m = MonthOf(t)
	return nil
}
