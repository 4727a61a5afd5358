package pipeline

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveDate(t *testing.T) {
	// Friday afternoon.
	now := time.Date(2024, time.March, 15, 16, 30, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"today", date(2024, 3, 15)},
		{"This Morning", date(2024, 3, 15)},
		{"Yesterday", date(2024, 3, 14)},
		{"  TOMORROW ", date(2024, 3, 16)},
		{"last monday", date(2024, 3, 11)},
		{"Monday", date(2024, 3, 11)},
		{"2024-02-29", date(2024, 2, 29)},
		{"2024-02-29T10:15:00Z", date(2024, 2, 29)},
		{"next tuesday", date(2024, 3, 15)},
		{"15/03/2024", date(2024, 3, 15)},
		{"2024-13-40", date(2024, 3, 15)},
		{"", date(2024, 3, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := ResolveDate(tt.expr, now)
			if !got.Equal(tt.want) {
				t.Errorf("ResolveDate(%q) = %s, want %s", tt.expr, FormatDate(got), FormatDate(tt.want))
			}
		})
	}
}

func TestResolveDate_Rollover(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		expr string
		want string
	}{
		{"yesterday across month", date(2024, 3, 1), "yesterday", "2024-02-29"},
		{"yesterday across year", date(2025, 1, 1), "yesterday", "2024-12-31"},
		{"tomorrow across month", date(2023, 4, 30), "tomorrow", "2023-05-01"},
		{"tomorrow across year", date(2024, 12, 31), "tomorrow", "2025-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(ResolveDate(tt.expr, tt.now)); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveDate_Monday(t *testing.T) {
	// Week of 2024-03-11 (Monday) .. 2024-03-17 (Sunday).
	for day := 11; day <= 17; day++ {
		now := date(2024, 3, day)
		got := ResolveDate("monday", now)
		if !got.Equal(date(2024, 3, 11)) {
			t.Errorf("%s: expected 2024-03-11, got %s", now.Weekday(), FormatDate(got))
		}
	}
}

func TestResolveDate_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	// 23:30 UTC on the 14th is already the 15th in UTC+7.
	now := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC).In(loc)

	if got := FormatDate(ResolveDate("today", now)); got != "2024-03-15" {
		t.Errorf("Expected 2024-03-15 in caller's zone, got %s", got)
	}
}
