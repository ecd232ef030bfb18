// Package timeutil holds the calendar arithmetic shared by the CLI and the
// provider clients: ISO week handling, month spans and weekday resolution.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DaysOfWeek lists weekday names in ISO order (Monday first), as accepted by
// the --weekday flags.
var DaysOfWeek = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// ISODate formats t as an ISO-8601 calendar date (YYYY-MM-DD). All provider
// APIs take dates in this form.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseISODate parses an ISO-8601 calendar date.
func ParseISODate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// WeekNumber returns the ISO week number containing t.
func WeekNumber(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// WeekSpan returns the Monday and Sunday of the given ISO week.
func WeekSpan(year, week int) (time.Time, time.Time) {
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := jan4.AddDate(0, 0, -(wd-1)+(week-1)*7)
	return monday, monday.AddDate(0, 0, 6)
}

// MonthSpan returns the first and last day of the given month in now's year.
// Unless includeFuture is set, the span is capped at now for the current
// month so reports do not cover days that have not happened yet.
func MonthSpan(now time.Time, month time.Month, includeFuture bool) (time.Time, time.Time) {
	first := time.Date(now.Year(), month, 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	if !includeFuture && month == now.Month() && last.After(now) {
		last = StartOfDay(now)
	}
	return first, last
}

// WeekdayDate resolves a weekday name onto the ISO week containing base.
func WeekdayDate(base time.Time, weekday string) (time.Time, error) {
	name := strings.ToLower(weekday)
	for i, d := range DaysOfWeek {
		if d == name {
			wd := int(base.Weekday())
			if wd == 0 {
				wd = 7
			}
			monday := base.AddDate(0, 0, -(wd - 1))
			return StartOfDay(monday.AddDate(0, 0, i)), nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown weekday %q", weekday)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
