package calendar

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a civil date, counted in days since 1970-01-01.
// It carries no time zone: the zone is applied once, when a Calendar
// turns an instant into a Day.
type Day int

// NewDay returns the Day for the given year, month and day of month.
// Out of range values are normalized the same way time.Date does it.
func NewDay(year int, month time.Month, day int) Day {
	secs := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix()
	days := secs / secondsPerDay
	// floor, so dates before the epoch don't round towards zero
	if secs%secondsPerDay < 0 {
		days--
	}
	return Day(days)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse day [%s]: %w", s, err)
	}
	return NewDay(t.Year(), t.Month(), t.Day()), nil
}

const secondsPerDay = 24 * 60 * 60

// Time returns midnight UTC of the day. Only meant for formatting and date parts.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// Sub returns the number of days between d and other (d - other).
func (d Day) Sub(other Day) int {
	return int(d - other)
}

func (d Day) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Monday returns the Monday of the (Monday-start) week containing d.
func (d Day) Monday() Day {
	// time.Sunday == 0, so shift it to the end of the week
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// ShortName returns the abbreviated weekday name, e.g. "Mon".
func (d Day) ShortName() string {
	return d.Time().Format("Mon")
}

// Label returns a short month-day label, e.g. "Jan 2".
func (d Day) Label() string {
	return d.Time().Format("Jan 2")
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

// Within reports whether d is in the inclusive range [from, to].
func (d Day) Within(from, to Day) bool {
	return d >= from && d <= to
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
