// Package timeutil provides calendar-day utilities for streak tracking and
// study-time windows. All day math runs in a configurable location because
// streaks and daily totals are defined on the learner's local calendar day.
// No external dependencies - uses only standard library.
package timeutil

import (
	"sync"
	"time"
)

var (
	locMu    sync.RWMutex
	location = time.Local
)

// SetLocation sets the location used for all calendar-day math.
// Call once at startup, before any analytics are computed.
func SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	locMu.Lock()
	location = loc
	locMu.Unlock()
}

// Location returns the location used for calendar-day math.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return location
}

// Now returns the current time in the configured location.
func Now() time.Time {
	return time.Now().In(Location())
}

// In converts a time to the configured location.
func In(t time.Time) time.Time {
	return t.In(Location())
}

// Date creates a midnight time in the configured location.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Location())
}

// DateTime creates a time in the configured location.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, Location())
}

// StartOfDay returns the start of the day (00:00:00) in the configured location.
func StartOfDay(t time.Time) time.Time {
	local := In(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// EndOfDay returns the end of the day (23:59:59.999999999).
func EndOfDay(t time.Time) time.Time {
	local := In(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, Location())
}

// StartOfWeek returns the start of the week (Monday 00:00:00).
func StartOfWeek(t time.Time) time.Time {
	local := In(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract))
}

// StartOfMonth returns the start of the month.
func StartOfMonth(t time.Time) time.Time {
	local := In(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, Location())
}

// IsSameDay checks if two times fall on the same calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := In(t1), In(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// IsConsecutiveDay checks if t2 is the calendar day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	nextDay := In(t1).AddDate(0, 0, 1)
	return IsSameDay(nextDay, t2)
}

// DaysBetween calculates the number of whole calendar days between two times.
// The result is always non-negative.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Part-of-day boundaries for study-time distribution.
const (
	// MorningEnd is the first hour that no longer counts as morning.
	MorningEnd = 12
	// EveningStart is the first hour that counts as evening.
	EveningStart = 17
)

// IsMorning reports whether the time falls before noon.
func IsMorning(t time.Time) bool {
	return In(t).Hour() < MorningEnd
}

// IsAfternoon reports whether the time falls between noon and evening.
func IsAfternoon(t time.Time) bool {
	hour := In(t).Hour()
	return hour >= MorningEnd && hour < EveningStart
}

// IsEvening reports whether the time falls in the evening.
func IsEvening(t time.Time) bool {
	return In(t).Hour() >= EveningStart
}

// HourOfDay returns the local hour (0-23) of the given time.
func HourOfDay(t time.Time) int {
	return In(t).Hour()
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// DayKey formats a time as a per-day bucket key (YYYY-MM-DD) in the
// configured location. Used wherever events are grouped by calendar day.
func DayKey(t time.Time) string {
	return In(t).Format(FormatDate)
}

// ParseDate parses a date string (YYYY-MM-DD) in the configured location.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, Location())
}
