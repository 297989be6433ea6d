package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestIsTradingDay(t *testing.T) {
	// 2026-01-01 (Thursday) configured as an exchange holiday
	cal := New([]time.Time{date(2026, 1, 1)})

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"regular monday", date(2026, 1, 19), true},
		{"regular friday", date(2026, 1, 16), true},
		{"saturday", date(2026, 1, 17), false},
		{"sunday", date(2026, 1, 18), false},
		{"holiday", date(2026, 1, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.IsTradingDay(tt.day); got != tt.want {
				t.Errorf("IsTradingDay(%s) = %v, want %v", tt.day.Format("20060102"), got, tt.want)
			}
		})
	}
}

func TestPreviousTradingDay(t *testing.T) {
	cal := New([]time.Time{date(2026, 1, 1)})

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"midweek", date(2026, 1, 15), date(2026, 1, 14)},
		{"monday skips weekend", date(2026, 1, 19), date(2026, 1, 16)},
		{"friday jan 2 skips holiday", date(2026, 1, 2), date(2025, 12, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.PreviousTradingDay(tt.from); !got.Equal(tt.want) {
				t.Errorf("PreviousTradingDay(%s) = %s, want %s",
					tt.from.Format("20060102"), got.Format("20060102"), tt.want.Format("20060102"))
			}
		})
	}
}

func TestNextTradingDayOrSame(t *testing.T) {
	cal := New(nil)

	// Saturday rolls forward to Monday, a trading day stays put
	if got := cal.NextTradingDayOrSame(date(2026, 1, 17)); !got.Equal(date(2026, 1, 19)) {
		t.Errorf("saturday should roll to monday, got %s", got.Format("20060102"))
	}
	if got := cal.NextTradingDayOrSame(date(2026, 1, 19)); !got.Equal(date(2026, 1, 19)) {
		t.Errorf("trading day should be unchanged, got %s", got.Format("20060102"))
	}
}

func TestSessionBounds(t *testing.T) {
	day := date(2026, 1, 19)

	open := SessionOpen(day)
	if open.Hour() != 9 || open.Minute() != 30 || open.Second() != 0 {
		t.Errorf("unexpected session open %v", open)
	}

	closeT := SessionClose(day)
	if closeT.Hour() != 15 || closeT.Minute() != 30 || closeT.Second() != 0 {
		t.Errorf("unexpected session close %v", closeT)
	}
}
