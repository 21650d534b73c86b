package timecalc

import (
	"fmt"
	"time"
)

// DayKeyLayout is the canonical layout of a day-key.
const DayKeyLayout = "2006-01-02"

// DayKey returns the canonical "YYYY-MM-DD" key of the calendar day containing
// t, evaluated in loc. A nil loc means time.Local.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(location(loc)).Format(DayKeyLayout)
}

// ParseDayKey parses a "YYYY-MM-DD" key into midnight of that day in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, location(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q (want YYYY-MM-DD): %w", key, err)
	}
	return t, nil
}

// StartOfDay returns 00:00:00 of the day containing t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(location(loc))
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayKey(a, loc) == DayKey(b, loc)
}

// LastNDays returns the start of today and the n-1 calendar days before it,
// most recent first.
func LastNDays(now time.Time, n int, loc *time.Location) []time.Time {
	today := StartOfDay(now, loc)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		// AddDate keeps wall-clock midnight across DST shifts.
		days = append(days, today.AddDate(0, 0, -i))
	}
	return days
}

// DaysBetween returns each calendar day in [from, to] inclusive, oldest first.
func DaysBetween(from, to time.Time, loc *time.Location) []time.Time {
	var days []time.Time
	end := StartOfDay(to, loc)
	for d := StartOfDay(from, loc); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// FormatMinutes formats minutes as "1h 30m", "2h" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatClock formats t as a 24h "15:04" time in loc.
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(location(loc)).Format("15:04")
}

// ParseClock interprets "15:04" (or a full RFC 3339 timestamp) relative to the
// calendar day of ref in loc.
func ParseClock(s string, ref time.Time, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	c, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want HH:MM or RFC 3339): %w", s, err)
	}
	day := StartOfDay(ref, loc)
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
