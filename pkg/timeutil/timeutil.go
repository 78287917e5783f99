package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day expressed as minutes since midnight.
type Clock int

// MinutesPerDay bounds valid Clock values; a slot may end exactly at midnight.
const MinutesPerDay = 24 * 60

// ParseClock parses "HH:mm" or "HH:mm:ss" into a Clock. Seconds are
// accepted for compatibility with stored values but discarded. Any other
// shape, or an out-of-range component, is a format error.
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:mm or HH:mm:ss", raw)
	}

	hour, err := parseComponent(parts[0], 23)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	minute, err := parseComponent(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	if len(parts) == 3 {
		if _, err := parseComponent(parts[2], 59); err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", raw, err)
		}
	}

	return Clock(hour*60 + minute), nil
}

func parseComponent(raw string, max int) (int, error) {
	if len(raw) != 2 {
		return 0, fmt.Errorf("component %q must be two digits", raw)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("component %q is not numeric", raw)
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("component %q out of range 0-%d", raw, max)
	}
	return v, nil
}

// String renders the clock as zero-padded "HH:mm".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Valid reports whether the clock lies within a single day.
func (c Clock) Valid() bool {
	return c >= 0 && c <= MinutesPerDay
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && aEnd > bStart
}

// Contains reports whether t lies within the half-open window [start, end).
func Contains(start, end, t Clock) bool {
	return t >= start && t < end
}

// WeekdayUTC returns the weekday of t's UTC calendar date as an integer,
// 0=Sunday through 6=Saturday. Anchoring on UTC keeps slot arithmetic
// stable across deployment timezones and DST shifts.
func WeekdayUTC(t time.Time) int {
	return int(t.UTC().Weekday())
}

// At combines a calendar date with a time of day in the given location,
// producing the absolute instant the clock value refers to on that date.
func At(date time.Time, c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, loc)
}
