// Package calendar holds the single calendar-day policy used by set logging and
// all statistics bucketing (streaks, weekly frequency, trend weeks, heatmap).
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Calendar maps instants to civil days in one fixed location.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar for the given location; nil means time.Local.
func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc}
}

// Load returns a Calendar for an IANA time zone name.
// Empty name and "local" (any case) select the host local zone.
func Load(name string) (Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return New(time.Local), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("load location [%s]: %w", name, err)
	}
	return New(loc), nil
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Name returns the zone name, used in cache keys and responses.
func (c Calendar) Name() string {
	return c.Location().String()
}

// Day returns the civil day of t in the calendar's location.
func (c Calendar) Day(t time.Time) Day {
	local := t.In(c.Location())
	return NewDay(local.Year(), local.Month(), local.Day())
}

// Window returns the inclusive day range of the last n days ending with the day of now.
// n < 1 is treated as 1.
func (c Calendar) Window(now time.Time, n int) (from, to Day) {
	if n < 1 {
		n = 1
	}
	to = c.Day(now)
	return to.AddDays(-(n - 1)), to
}

// StartOf returns the instant the given day begins in the calendar's location.
func (c Calendar) StartOf(d Day) time.Time {
	t := d.Time()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Location())
}
