// Package timeutil provides timezone utilities for the campus timezone
// (America/New_York). Market cutoffs and weekly activity counts follow
// campus wall-clock time, not server time.
// No external dependencies - uses only standard library.
package timeutil

import (
	"sort"
	"time"
)

// CampusTZ is the campus timezone. America/New_York observes DST, so
// the zone database is required; UTC is the fallback when it is absent.
var CampusTZ = loadCampusTZ()

func loadCampusTZ() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Now returns the current time in campus timezone.
func Now() time.Time {
	return time.Now().In(CampusTZ)
}

// ToCampus converts a time to campus timezone.
func ToCampus(t time.Time) time.Time {
	return t.In(CampusTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in campus timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, CampusTZ)
}

// DateTime creates a time in campus timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, CampusTZ)
}

// StartOfDay returns the start of the day (00:00:00) in campus timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToCampus(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, CampusTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in campus timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToCampus(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, CampusTZ)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in campus timezone.
func StartOfWeek(t time.Time) time.Time {
	local := ToCampus(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract))
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in campus timezone.
func EndOfWeek(t time.Time) time.Time {
	start := StartOfWeek(t)
	return EndOfDay(start.AddDate(0, 0, 6))
}

// StartOfMonth returns the start of the month in campus timezone.
func StartOfMonth(t time.Time) time.Time {
	local := ToCampus(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, CampusTZ)
}

// EndOfMonth returns the end of the month in campus timezone.
func EndOfMonth(t time.Time) time.Time {
	start := StartOfMonth(t)
	return EndOfDay(start.AddDate(0, 1, -1))
}

// IsToday checks if the given time is today in campus timezone.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsSameDay checks if two times are on the same day in campus timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToCampus(t1), ToCampus(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysSince calculates the number of days since the given time.
func DaysSince(t time.Time) int {
	return DaysBetween(t, Now())
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	duration := a2.Sub(a1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// IsWeekend checks if the given time is on a weekend.
func IsWeekend(t time.Time) bool {
	local := ToCampus(t)
	weekday := local.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// ══════════════════════════════════════════════════════════════════════════════
// ISO WEEKS
// ══════════════════════════════════════════════════════════════════════════════

// WeekKey identifies one ISO week.
type WeekKey struct {
	Year int
	Week int
}

// ISOWeekKey returns the ISO week of a time in campus timezone.
func ISOWeekKey(t time.Time) WeekKey {
	year, week := ToCampus(t).ISOWeek()
	return WeekKey{Year: year, Week: week}
}

// DistinctISOWeeks counts the distinct ISO weeks covered by the given
// timestamps. Used as the "weeks active" measure of a student.
func DistinctISOWeeks(times []time.Time) int {
	seen := make(map[WeekKey]struct{}, len(times))
	for _, t := range times {
		seen[ISOWeekKey(t)] = struct{}{}
	}
	return len(seen)
}

// SortedISOWeeks returns the distinct ISO weeks in chronological order.
func SortedISOWeeks(times []time.Time) []WeekKey {
	seen := make(map[WeekKey]struct{}, len(times))
	for _, t := range times {
		seen[ISOWeekKey(t)] = struct{}{}
	}
	keys := make([]WeekKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Week < keys[j].Week
	})
	return keys
}

// ══════════════════════════════════════════════════════════════════════════════
// FORMATS
// ══════════════════════════════════════════════════════════════════════════════

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
	// FormatHumanDate is a human-readable format.
	FormatHumanDate = "2 January 2006"
	// FormatShortDate is a short format (Jan 2).
	FormatShortDate = "Jan 2"
)

// FormatCampus formats a time in campus timezone with the given layout.
func FormatCampus(t time.Time, layout string) string {
	return ToCampus(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in campus timezone.
func FormatDateStr(t time.Time) string {
	return FormatCampus(t, FormatDate)
}

// FormatDateTimeStr formats a time as datetime string in campus timezone.
func FormatDateTimeStr(t time.Time) string {
	return FormatCampus(t, FormatDateTime)
}

// ParseCampus parses a time string in campus timezone.
func ParseCampus(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, CampusTZ)
}

// ParseDateCampus parses a date string (YYYY-MM-DD) in campus timezone.
func ParseDateCampus(value string) (time.Time, error) {
	return ParseCampus(FormatDate, value)
}
