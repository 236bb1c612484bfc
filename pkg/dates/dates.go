// Package dates works with calendar days encoded as "YYYY-MM-DD" strings,
// the representation shifts, leave requests and availability blocks use in
// Firestore. Strings in this layout sort chronologically.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the persisted calendar-day layout.
const Layout = "2006-01-02"

// Parse converts a calendar-day string into midnight UTC.
func Parse(value string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// Valid reports whether value is a well-formed calendar day.
func Valid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// Format renders the calendar day of t, ignoring time of day.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(Layout)
}

// AddDays shifts a calendar day by n days.
func AddDays(value string, n int) (string, error) {
	t, err := Parse(value)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// MustAddDays is AddDays for values already known to be valid.
func MustAddDays(value string, n int) string {
	out, err := AddDays(value, n)
	if err != nil {
		panic(err)
	}
	return out
}

// Range returns count consecutive days starting at start.
func Range(start string, count int) ([]string, error) {
	first, err := Parse(start)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, Format(first.AddDate(0, 0, i)))
	}
	return out, nil
}

// Between returns every day from start to end inclusive.
func Between(start, end string) ([]string, error) {
	first, err := Parse(start)
	if err != nil {
		return nil, err
	}
	last, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if last.Before(first) {
		return nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	days := int(last.Sub(first).Hours()/24) + 1
	return Range(start, days)
}

// Weekday returns the day of week of a calendar day.
func Weekday(value string) (time.Weekday, error) {
	t, err := Parse(value)
	if err != nil {
		return time.Sunday, err
	}
	return t.Weekday(), nil
}

// WeekStart returns the Monday of the Monday-Sunday week containing value.
func WeekStart(value string) (string, error) {
	t, err := Parse(value)
	if err != nil {
		return "", err
	}
	offset := (int(t.Weekday()) + 6) % 7
	return Format(t.AddDate(0, 0, -offset)), nil
}

// Max returns the later of two calendar days.
func Max(a, b string) string {
	if a > b {
		return a
	}
	return b
}

// Min returns the earlier of two calendar days.
func Min(a, b string) string {
	if a < b {
		return a
	}
	return b
}

// ParseWeekday matches an English weekday name case-insensitively.
func ParseWeekday(value string) (time.Weekday, bool) {
	trimmed := strings.TrimSpace(value)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), trimmed) {
			return d, true
		}
	}
	return time.Sunday, false
}
