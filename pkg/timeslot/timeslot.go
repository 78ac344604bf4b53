// Package timeslot holds the working-hours policy shared by the schedule
// generator and the booking engine. Times of day are expressed as fractional
// hours in 24-hour format (13.5 means 1:30 PM).
package timeslot

import (
	"errors"
	"fmt"
	"time"
)

const (
	// OpeningTime and ClosingTime bound the bookable day: [8:00, 18:00).
	OpeningTime = 8.0
	ClosingTime = 18.0

	// MiddayTime splits the day into the morning and afternoon halves.
	MiddayTime = 13.0

	// Interval is the slot granularity in fractional hours.
	Interval = 0.5
)

var (
	ErrOutOfHours    = errors.New("appointment time must be between 8:00 and 17:59")
	ErrNotOnBoundary = errors.New("appointments can only be scheduled at hour or half-hour intervals")
	ErrWeekend       = errors.New("appointments can only be scheduled on weekdays")
	ErrPastDate      = errors.New("cannot schedule for past dates")
	ErrRangeInverted = errors.New("end date cannot be before start date")
)

// ValidateTime checks that t falls inside working hours on a half-hour
// boundary.
func ValidateTime(t float64) error {
	if t < OpeningTime || t >= ClosingTime {
		return ErrOutOfHours
	}
	if m := mod1(t); m != 0.0 && m != 0.5 {
		return ErrNotOnBoundary
	}
	return nil
}

// mod1 returns the fractional part of t. Slot times are multiples of 0.5, so
// exact float comparison is safe here.
func mod1(t float64) float64 {
	return t - float64(int(t))
}

// IsWeekday reports whether d falls on Monday through Friday.
func IsWeekday(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Times returns every bookable time of day in ascending order, 8.0 through
// 17.5 in half-hour steps (twenty slots).
func Times() []float64 {
	var out []float64
	for t := OpeningTime; t < ClosingTime; t += Interval {
		out = append(out, t)
	}
	return out
}

// MorningTimes returns the times in [8:00, 13:00).
func MorningTimes() []float64 {
	var out []float64
	for t := OpeningTime; t < MiddayTime; t += Interval {
		out = append(out, t)
	}
	return out
}

// AfternoonTimes returns the times in [13:00, 18:00).
func AfternoonTimes() []float64 {
	var out []float64
	for t := MiddayTime; t < ClosingTime; t += Interval {
		out = append(out, t)
	}
	return out
}

// IsEvenISOWeek reports whether d falls in an even ISO week number. Used by
// alternating shift patterns that flip morning/afternoon week to week.
func IsEvenISOWeek(d time.Time) bool {
	_, week := d.ISOWeek()
	return week%2 == 0
}

// Clock formats a fractional-hour time as HH:MM for messages and toasts.
func Clock(t float64) string {
	h := int(t)
	m := int((t - float64(h)) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// DateOnly truncates t to midnight in its location. Visit and slot dates are
// compared at day granularity.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ValidateRange checks a generation date range: from must not be in the past
// (relative to today) and to must not precede from.
func ValidateRange(from, to, today time.Time) error {
	from, to, today = DateOnly(from), DateOnly(to), DateOnly(today)
	if to.Before(from) {
		return ErrRangeInverted
	}
	if from.Before(today) {
		return ErrPastDate
	}
	return nil
}
