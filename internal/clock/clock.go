// Package clock provides the single source of "now" and the calendar
// arithmetic behind streaks, daily uniqueness, and pulse-week windows.
// Day-sensitive code must not call time.Now() directly; inject a Clock
// so tests stay deterministic.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real returns the actual system time. Use only at entry points.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns T. Use in tests.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time { return c.T }

// Func wraps a function as a Clock, for incremental-time scenarios.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// DayOf buckets an instant into its calendar day in loc, returned as
// midnight UTC so that equal days compare equal regardless of the
// zone they were computed in.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same calendar day
// in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayOf(a, loc).Equal(DayOf(b, loc))
}

// NextDay returns the calendar day after a day bucket.
func NextDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1)
}

// ISOWeek returns the ISO 8601 year and week number for an instant.
func ISOWeek(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// WeekWindow returns the [Monday 00:00:00, Sunday 23:59:59.999] bounds
// of the ISO week containing t, in t's location.
func WeekWindow(t time.Time) (start, end time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		AddDate(0, 0, -(weekday - 1))
	end = start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}
