package ir

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Accepted due-date layouts. The clock-less layouts default to 23:59, the
// conventional end-of-day deadline in course schedules.
var dueLayoutsWithTime = []string{
	"2006-01-02 3:04pm",
	"2006-01-02 3:04 pm",
	"2006-01-02 15:04",
	"Jan 2, 2006 3:04pm",
	"Jan 2, 2006 3:04 pm",
	"January 2, 2006 3:04pm",
	"January 2, 2006 3:04 pm",
}

var dueLayoutsDateOnly = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Layout matching in the time package is case-sensitive, so the meridiem
// suffix is normalized to lowercase before trying the clocked layouts.
func lowerMeridiem(s string) string {
	for _, suffix := range []string{"AM", "Am", "aM", "PM", "Pm", "pM"} {
		if strings.HasSuffix(s, suffix) {
			return s[:len(s)-2] + strings.ToLower(suffix)
		}
	}
	return s
}

// ParseDueDate parses the accepted due formats in the course's local time.
func ParseDueDate(s string) (time.Time, error) {
	raw := lowerMeridiem(strings.TrimSpace(s))
	for _, layout := range dueLayoutsWithTime {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	for _, layout := range dueLayoutsDateOnly {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, time.Local), nil
		}
	}
	return time.Time{}, errors.Errorf("unparseable due date: %q", s)
}

// FormatDueDate renders the canonical serialized form, e.g. "2026-01-22 11:59pm".
func FormatDueDate(t time.Time) string {
	return strings.ToLower(t.Format("2006-01-02 3:04PM"))
}
