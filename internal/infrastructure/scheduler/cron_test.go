package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpressionRejectsBadInput(t *testing.T) {
	_, err := ParseCronExpression("* * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("61 * * * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("")
	assert.Error(t, err)
}

func TestCronNextEvery5Minutes(t *testing.T) {
	expr, err := ParseCronExpression(Every5Minutes)
	require.NoError(t, err)

	after := time.Date(2026, 3, 10, 14, 2, 30, 0, time.UTC)
	next := expr.Next(after)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC), next)

	// On an exact boundary the next firing is the following slot.
	after = time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC)
	next = expr.Next(after)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 10, 0, 0, time.UTC), next)
}

func TestCronNextMidnight(t *testing.T) {
	expr := MustParseCronExpression(EveryDayMidnight)

	after := time.Date(2026, 3, 10, 14, 2, 30, 0, time.UTC)
	next := expr.Next(after)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), next)
}

func TestCronNextRanges(t *testing.T) {
	expr, err := ParseCronExpression("0 9-17 * * 1-5")
	require.NoError(t, err)

	// Friday evening rolls over to Monday morning.
	friday := time.Date(2026, 3, 13, 18, 0, 0, 0, time.UTC)
	next := expr.Next(friday)
	assert.Equal(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), next)
}

func TestCronSatisfiesSchedule(t *testing.T) {
	var _ Schedule = MustParseCronExpression(EveryHour)
}

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(10*time.Minute), s.Next(now))
	assert.Equal(t, "@every 10m0s", s.String())
}
