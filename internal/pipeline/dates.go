package pipeline

import (
	"strings"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// ResolveDate turns a free-form date expression into a calendar date
// relative to now. Rules, first match wins (case-insensitive):
//
//	"today", "this morning"  -> now
//	"yesterday"              -> now - 1 day
//	"tomorrow"               -> now + 1 day
//	contains "monday"        -> Monday of the current week
//	YYYY-MM-DD               -> that date
//	anything else            -> now
//
// The result is midnight in now's location. Only Monday is recognised among
// the weekday names.
func ResolveDate(expr string, now time.Time) time.Time {
	today := startOfDay(now)
	s := strings.ToLower(strings.TrimSpace(expr))

	switch {
	case s == "today" || s == "this morning":
		return today
	case s == "yesterday":
		return today.AddDate(0, 0, -1)
	case s == "tomorrow":
		return today.AddDate(0, 0, 1)
	case strings.Contains(s, "monday"):
		return mondayOfWeek(today)
	}

	if d, ok := parseISODate(s, now.Location()); ok {
		return d
	}
	return today
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// mondayOfWeek treats Monday as the first day of the week, so Sunday maps six
// days back.
func mondayOfWeek(today time.Time) time.Time {
	dow := int(today.Weekday())
	diff := 1 - dow
	if today.Weekday() == time.Sunday {
		diff = -6
	}
	return today.AddDate(0, 0, diff)
}

// parseISODate accepts "YYYY-MM-DD" optionally followed by a time part
// ("2024-03-10T08:00:00Z" or "2024-03-10 08:00").
func parseISODate(s string, loc *time.Location) (time.Time, bool) {
	if len(s) < len(domain.DateLayout) {
		return time.Time{}, false
	}
	if len(s) > len(domain.DateLayout) {
		if sep := s[len(domain.DateLayout)]; sep != 't' && sep != ' ' {
			return time.Time{}, false
		}
	}
	d, err := time.ParseInLocation(domain.DateLayout, s[:len(domain.DateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
