package earnings

import (
	"errors"
	"strings"
	"time"
)

// Period selects the window an earnings snapshot aggregates over.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

var ErrInvalidPeriod = errors.New("invalid earnings period")

// ParsePeriod normalizes (lowercases+trims) and validates a period string.
// An empty string selects today.
func ParsePeriod(in string) (Period, error) {
	in = strings.ToLower(strings.TrimSpace(in))
	if in == "" {
		return PeriodToday, nil
	}
	period := Period(in)
	if period.Valid() {
		return period, nil
	}
	return "", ErrInvalidPeriod
}

// Valid reports whether period is one of the allowed period constants.
func (period Period) Valid() bool {
	switch period {
	case PeriodToday, PeriodWeek, PeriodMonth:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Period.
func (period Period) String() string {
	return string(period)
}

// Range returns the half-open [from, to) window containing now, in now's
// location. Weeks start on Monday.
func (period Period) Range(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch period {
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		from := day.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 7)
	case PeriodMonth:
		from := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}
