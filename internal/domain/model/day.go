package model

import (
	"fmt"
	"time"
)

// DayLayout is the wire format of a calendar day.
const DayLayout = "2006-01-02"

// Day is a calendar day (YYYY-MM-DD) with no time-of-day component.
type Day string

// DayOf returns the calendar day of t in loc. A nil loc means time.Local.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	return Day(t.In(loc).Format(DayLayout))
}

// ParseDay validates and returns a Day.
func ParseDay(v string) (Day, error) {
	if _, err := time.Parse(DayLayout, v); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, v)
	}
	return Day(v), nil
}

// Valid reports whether d parses as a calendar day.
func (d Day) Valid() bool {
	_, err := time.Parse(DayLayout, string(d))
	return err == nil
}

// Time returns midnight UTC of d, or the zero time if d is invalid.
func (d Day) Time() time.Time {
	t, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return Day(d.Time().AddDate(0, 0, n).Format(DayLayout))
}

// String implements fmt.Stringer.
func (d Day) String() string { return string(d) }

// DaysBetween returns the number of calendar days from `from` to `to`.
// Both days are midnight-aligned in UTC so the result is exact regardless of
// DST in the trainee's location.
func DaysBetween(from, to Day) (int, error) {
	f, err := time.Parse(DayLayout, string(from))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDay, from)
	}
	t, err := time.Parse(DayLayout, string(to))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDay, to)
	}
	return int(t.Sub(f) / (24 * time.Hour)), nil
}

// Timestamp is an instant in Unix milliseconds, the representation used by
// the stored progress blob.
type Timestamp int64

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp { return Timestamp(t.UnixMilli()) }

// Time converts ts back to a time.Time.
func (ts Timestamp) Time() time.Time { return time.UnixMilli(int64(ts)) }
