package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfWeekIsMonday(t *testing.T) {
	// Wednesday, 11 March 2026.
	wed := Date(2026, 3, 11)
	start := StartOfWeek(wed)

	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, 9, start.Day())

	// Sunday belongs to the week that started the previous Monday.
	sun := Date(2026, 3, 15)
	assert.Equal(t, 9, StartOfWeek(sun).Day())
}

func TestISOWeekKeyFollowsCampusClock(t *testing.T) {
	// 02:00 UTC Monday is still Sunday evening on campus, so it counts
	// toward the previous ISO week.
	utcMonday := time.Date(2026, 3, 9, 2, 0, 0, 0, time.UTC)
	campusSunday := ISOWeekKey(utcMonday)

	campusMonday := ISOWeekKey(time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, campusMonday.Week-1, campusSunday.Week)
}

func TestDistinctISOWeeks(t *testing.T) {
	stamps := []time.Time{
		DateTime(2026, 3, 9, 10, 0, 0),  // Monday
		DateTime(2026, 3, 11, 10, 0, 0), // same week
		DateTime(2026, 3, 13, 10, 0, 0), // same week
		DateTime(2026, 3, 16, 10, 0, 0), // next week
		DateTime(2026, 3, 30, 10, 0, 0), // two weeks later
	}

	assert.Equal(t, 3, DistinctISOWeeks(stamps))
	assert.Equal(t, 0, DistinctISOWeeks(nil))
}

func TestSortedISOWeeks(t *testing.T) {
	stamps := []time.Time{
		DateTime(2026, 3, 16, 10, 0, 0),
		DateTime(2026, 3, 9, 10, 0, 0),
		DateTime(2026, 3, 11, 10, 0, 0),
	}

	weeks := SortedISOWeeks(stamps)
	assert.Len(t, weeks, 2)
	assert.Less(t, weeks[0].Week, weeks[1].Week)
}

func TestIsSameDay(t *testing.T) {
	a := DateTime(2026, 3, 9, 0, 30, 0)
	b := DateTime(2026, 3, 9, 23, 30, 0)
	c := DateTime(2026, 3, 10, 0, 30, 0)

	assert.True(t, IsSameDay(a, b))
	assert.False(t, IsSameDay(b, c))
}

func TestDaysBetween(t *testing.T) {
	a := Date(2026, 3, 9)
	b := Date(2026, 3, 16)

	assert.Equal(t, 7, DaysBetween(a, b))
	assert.Equal(t, 7, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestParseDateCampus(t *testing.T) {
	parsed, err := ParseDateCampus("2026-03-09")
	assert.NoError(t, err)
	assert.Equal(t, Date(2026, 3, 9), parsed)
}
