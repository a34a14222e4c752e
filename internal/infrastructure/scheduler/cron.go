package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common cron presets.
const (
	EveryMinute      = "* * * * *"
	Every5Minutes    = "*/5 * * * *"
	Every10Minutes   = "*/10 * * * *"
	Every15Minutes   = "*/15 * * * *"
	Every30Minutes   = "*/30 * * * *"
	EveryHour        = "0 * * * *"
	EveryDayMidnight = "0 0 * * *"
	EverySunday      = "0 0 * * 0"
	FirstOfMonth     = "0 0 1 * *"
)

// CronExpression is a parsed five-field cron line
// (minute hour day-of-month month day-of-week, weekday 0 = Sunday).
// It satisfies Schedule, so cron-timed jobs register on the same
// scheduler as interval-timed ones.
//
// Each field is a bitmask over the field's value range.
type CronExpression struct {
	raw     string
	minute  uint64
	hour    uint64
	day     uint64
	month   uint64
	weekday uint64
}

var _ Schedule = (*CronExpression)(nil)

// cron field bounds, in field order.
var cronBounds = [5]struct {
	name     string
	min, max int
}{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// ParseCronExpression parses a cron line. Each field accepts "*", a
// single value, a range "n-m", a list "a,b,c" and a step "*/s" or
// "n-m/s".
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}

	var masks [5]uint64
	for i, field := range fields {
		b := cronBounds[i]
		mask, err := parseCronField(field, b.min, b.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", b.name, err)
		}
		masks[i] = mask
	}

	return &CronExpression{
		raw:     expr,
		minute:  masks[0],
		hour:    masks[1],
		day:     masks[2],
		month:   masks[3],
		weekday: masks[4],
	}, nil
}

// MustParseCronExpression parses a cron line or panics.
// Use only for compile-time constants.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(fmt.Sprintf("invalid cron expression %q: %v", expr, err))
	}
	return ce
}

// parseCronField builds the bitmask for one field. Comma-separated
// parts combine; each part is "*", "n", "n-m", optionally with "/step".
func parseCronField(field string, min, max int) (uint64, error) {
	var mask uint64

	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)

		step := 1
		if base, stepStr, found := strings.Cut(part, "/"); found {
			s, err := strconv.Atoi(stepStr)
			if err != nil || s <= 0 {
				return 0, fmt.Errorf("invalid step value: %s", stepStr)
			}
			step = s
			part = base
		}

		lo, hi := min, max
		switch {
		case part == "*":
			// Full range.
		case strings.Contains(part, "-"):
			loStr, hiStr, _ := strings.Cut(part, "-")
			var err error
			if lo, err = strconv.Atoi(loStr); err != nil {
				return 0, fmt.Errorf("invalid range start: %s", loStr)
			}
			if hi, err = strconv.Atoi(hiStr); err != nil {
				return 0, fmt.Errorf("invalid range end: %s", hiStr)
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return 0, fmt.Errorf("invalid value: %s", part)
			}
			if v < min || v > max {
				return 0, fmt.Errorf("value out of range [%d-%d]: %d", min, max, v)
			}
			lo = v
			// A bare value with a step runs to the end of the range.
			if step == 1 {
				hi = v
			}
		}

		for v := lo; v <= hi; v += step {
			if v >= min && v <= max {
				mask |= 1 << uint(v)
			}
		}
	}

	if mask == 0 {
		return 0, fmt.Errorf("field matches nothing: %s", field)
	}
	return mask, nil
}

// String returns the original cron line.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching minute strictly after the given time.
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Add(time.Minute).Truncate(time.Minute)

	// A valid expression matches within a year; bail out after that.
	limit := t.AddDate(1, 0, 1)
	for t.Before(limit) {
		if ce.month&(1<<uint(t.Month())) == 0 {
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
			continue
		}
		if ce.day&(1<<uint(t.Day())) == 0 || ce.weekday&(1<<uint(t.Weekday())) == 0 {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
			continue
		}
		if ce.hour&(1<<uint(t.Hour())) == 0 {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
			continue
		}
		if ce.minute&(1<<uint(t.Minute())) == 0 {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}
