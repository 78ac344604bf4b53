package timeslot

import (
	"errors"
	"testing"
	"time"
)

func TestValidateTime(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want error
	}{
		{"opening slot", 8.0, nil},
		{"last slot", 17.5, nil},
		{"half hour", 10.5, nil},
		{"before opening", 7.5, ErrOutOfHours},
		{"at closing", 18.0, ErrOutOfHours},
		{"after closing", 19.0, ErrOutOfHours},
		{"quarter hour", 9.25, ErrNotOnBoundary},
		{"ten past", 14.1, ErrNotOnBoundary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateTime(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ValidateTime(%v) = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestTimes(t *testing.T) {
	times := Times()
	if len(times) != 20 {
		t.Fatalf("len(Times()) = %d, want 20", len(times))
	}
	if times[0] != OpeningTime {
		t.Errorf("first slot = %v, want %v", times[0], OpeningTime)
	}
	if times[len(times)-1] != 17.5 {
		t.Errorf("last slot = %v, want 17.5", times[len(times)-1])
	}

	morning, afternoon := MorningTimes(), AfternoonTimes()
	if len(morning)+len(afternoon) != len(times) {
		t.Errorf("morning (%d) + afternoon (%d) != all (%d)", len(morning), len(afternoon), len(times))
	}
	for _, tm := range morning {
		if tm >= MiddayTime {
			t.Errorf("morning slot %v at or past midday", tm)
		}
	}
	for _, tm := range afternoon {
		if tm < MiddayTime {
			t.Errorf("afternoon slot %v before midday", tm)
		}
	}
}

func TestIsWeekday(t *testing.T) {
	// 2026-03-02 is a Monday.
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if !IsWeekday(monday.AddDate(0, 0, i)) {
			t.Errorf("day %d of the week should be a weekday", i)
		}
	}
	if IsWeekday(monday.AddDate(0, 0, 5)) {
		t.Error("Saturday should not be a weekday")
	}
	if IsWeekday(monday.AddDate(0, 0, 6)) {
		t.Error("Sunday should not be a weekday")
	}
}

func TestIsEvenISOWeek(t *testing.T) {
	// 2026-03-02 opens ISO week 10; 2026-03-09 opens week 11.
	if !IsEvenISOWeek(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Error("week 10 should be even")
	}
	if IsEvenISOWeek(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Error("week 11 should be odd")
	}
}

func TestClock(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{8.0, "08:00"},
		{13.5, "13:30"},
		{17.5, "17:30"},
	}
	for _, tt := range tests {
		if got := Clock(tt.in); got != tt.want {
			t.Errorf("Clock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRange(t *testing.T) {
	today := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	if err := ValidateRange(today, tomorrow, today); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}
	// Same-day ranges are allowed; the time of day is ignored.
	if err := ValidateRange(today, today, today); err != nil {
		t.Errorf("same-day range rejected: %v", err)
	}
	if err := ValidateRange(tomorrow, today, today); !errors.Is(err, ErrRangeInverted) {
		t.Errorf("inverted range: got %v, want ErrRangeInverted", err)
	}
	if err := ValidateRange(today.AddDate(0, 0, -1), tomorrow, today); !errors.Is(err, ErrPastDate) {
		t.Errorf("past start: got %v, want ErrPastDate", err)
	}
}
