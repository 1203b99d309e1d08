// Package calendar is the single place day arithmetic happens. Every function
// works on calendar days in the location of its inputs and ignores time-of-day.
package calendar

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var acceptedLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// InvalidDateError reports date input that could not be parsed.
type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Input)
}

func (e *InvalidDateError) HTTPStatus() int   { return http.StatusBadRequest }
func (e *InvalidDateError) ErrorCode() string { return "INVALID_DATE" }

// Clock supplies the current instant. Tests use FixedClock.
type Clock interface {
	Now() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type FixedClock struct {
	At time.Time
}

func (c *FixedClock) Now() time.Time { return c.At }

// Advance moves the clock forward by whole days.
func (c *FixedClock) Advance(days int) { c.At = c.At.AddDate(0, 0, days) }

// Today returns midnight of the clock's current day.
func Today(c Clock) time.Time {
	return Truncate(c.Now())
}

// Truncate drops the time-of-day, keeping t's location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the number of whole calendar days from "from" to "to".
// It is negative when to is before from and is immune to DST shifts.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

// DaysInclusive counts both endpoints: the same day twice yields 1.
// Returns 0 when to is before from.
func DaysInclusive(from, to time.Time) int {
	n := DaysBetween(from, to)
	if n < 0 {
		return 0
	}
	return n + 1
}

// ProjectEnd returns the calendar day that is days after start.
func ProjectEnd(start time.Time, days int) time.Time {
	return Truncate(start).AddDate(0, 0, days)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DaysBetween(a, b) == 0
}

// ParseDate parses a calendar date in loc. Timestamps are accepted and truncated
// to the day they fall on in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := strings.TrimSpace(s)
	for _, layout := range acceptedLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return Truncate(t.In(loc)), nil
		}
	}
	return time.Time{}, &InvalidDateError{Input: s}
}

// ResolveDate is the lenient variant used for activation: blank or unparseable
// input means today. Admin forms submit an empty field to mean "today".
func ResolveDate(s string, c Clock) time.Time {
	today := Today(c)
	if strings.TrimSpace(s) == "" {
		return today
	}
	t, err := ParseDate(s, today.Location())
	if err != nil {
		return today
	}
	return t
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(DateLayout)
}
