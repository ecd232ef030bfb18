package timeutil_test

import (
	"testing"
	"time"

	"github.com/brbcoffee/ttcli/internal/timeutil"
)

func TestWeekSpan(t *testing.T) {
	// ISO week 9 of 2026 runs Monday 2026-02-23 through Sunday 2026-03-01.
	start, end := timeutil.WeekSpan(2026, 9)
	if got := timeutil.ISODate(start); got != "2026-02-23" {
		t.Errorf("start = %s, want 2026-02-23", got)
	}
	if got := timeutil.ISODate(end); got != "2026-03-01" {
		t.Errorf("end = %s, want 2026-03-01", got)
	}
	if start.Weekday() != time.Monday {
		t.Errorf("start weekday = %s, want Monday", start.Weekday())
	}
}

func TestWeekSpanFirstWeek(t *testing.T) {
	// ISO week 1 of 2026 starts Monday 2025-12-29.
	start, _ := timeutil.WeekSpan(2026, 1)
	if got := timeutil.ISODate(start); got != "2025-12-29" {
		t.Errorf("start = %s, want 2025-12-29", got)
	}
}

func TestWeekNumberMatchesSpan(t *testing.T) {
	start, end := timeutil.WeekSpan(2026, 35)
	if got := timeutil.WeekNumber(start); got != 35 {
		t.Errorf("WeekNumber(start) = %d, want 35", got)
	}
	if got := timeutil.WeekNumber(end); got != 35 {
		t.Errorf("WeekNumber(end) = %d, want 35", got)
	}
}

func TestMonthSpanPastMonth(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	first, last := timeutil.MonthSpan(now, time.May, false)
	if got := timeutil.ISODate(first); got != "2026-05-01" {
		t.Errorf("first = %s, want 2026-05-01", got)
	}
	if got := timeutil.ISODate(last); got != "2026-05-31" {
		t.Errorf("last = %s, want 2026-05-31", got)
	}
}

func TestMonthSpanCurrentMonthCapped(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	_, last := timeutil.MonthSpan(now, time.August, false)
	if got := timeutil.ISODate(last); got != "2026-08-20" {
		t.Errorf("last = %s, want 2026-08-20 (capped at today)", got)
	}

	_, last = timeutil.MonthSpan(now, time.August, true)
	if got := timeutil.ISODate(last); got != "2026-08-31" {
		t.Errorf("last = %s, want 2026-08-31 (include future)", got)
	}
}

func TestWeekdayDate(t *testing.T) {
	// Wednesday 2026-08-26; Friday of the same ISO week is 2026-08-28.
	base := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)
	friday, err := timeutil.WeekdayDate(base, "Friday")
	if err != nil {
		t.Fatalf("WeekdayDate: %v", err)
	}
	if got := timeutil.ISODate(friday); got != "2026-08-28" {
		t.Errorf("friday = %s, want 2026-08-28", got)
	}

	monday, err := timeutil.WeekdayDate(base, "monday")
	if err != nil {
		t.Fatalf("WeekdayDate: %v", err)
	}
	if got := timeutil.ISODate(monday); got != "2026-08-24" {
		t.Errorf("monday = %s, want 2026-08-24", got)
	}
}

func TestWeekdayDateFromSunday(t *testing.T) {
	// Sunday 2026-08-30 belongs to the week starting Monday 2026-08-24.
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	tuesday, err := timeutil.WeekdayDate(base, "tuesday")
	if err != nil {
		t.Fatalf("WeekdayDate: %v", err)
	}
	if got := timeutil.ISODate(tuesday); got != "2026-08-25" {
		t.Errorf("tuesday = %s, want 2026-08-25", got)
	}
}

func TestWeekdayDateUnknown(t *testing.T) {
	if _, err := timeutil.WeekdayDate(time.Now(), "someday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !timeutil.SameDay(a, b) {
		t.Error("SameDay(a, b) = false, want true")
	}
	if timeutil.SameDay(b, c) {
		t.Error("SameDay(b, c) = true, want false")
	}
}
