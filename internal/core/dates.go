package core

import (
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// ParseDate parses a calendar day. The result has no time component (UTC midnight).
func ParseDate(field, s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, Invalid(field, "must be a date formatted as YYYY-MM-DD")
	}
	return d, nil
}

// ParseMonth parses YYYY-MM and returns the half-open range [first day, first day of next month).
func ParseMonth(field, s string) (time.Time, time.Time, error) {
	m, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, Invalid(field, "must be a month formatted as YYYY-MM")
	}
	return m, m.AddDate(0, 1, 0), nil
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
