package ir

import (
	"testing"
	"time"
)

func TestParseDueDateFormats(t *testing.T) {
	cases := []struct {
		in           string
		hour, minute int
		day          int
		month        time.Month
	}{
		{"2026-01-15 11:59pm", 23, 59, 15, time.January},
		{"2026-01-15 11:59 PM", 23, 59, 15, time.January},
		{"2026-01-22 11:59PM", 23, 59, 22, time.January},
		{"2026-01-15 23:59", 23, 59, 15, time.January},
		{"2026-01-15", 23, 59, 15, time.January},
		{"Jan 15, 2026 9:05am", 9, 5, 15, time.January},
		{"Jan 15, 2026", 23, 59, 15, time.January},
		{"January 15, 2026", 23, 59, 15, time.January},
	}
	for _, tc := range cases {
		got, err := ParseDueDate(tc.in)
		if err != nil {
			t.Fatalf("ParseDueDate(%q): %v", tc.in, err)
		}
		if got.Year() != 2026 || got.Month() != tc.month || got.Day() != tc.day {
			t.Fatalf("ParseDueDate(%q) date = %v", tc.in, got)
		}
		if got.Hour() != tc.hour || got.Minute() != tc.minute {
			t.Fatalf("ParseDueDate(%q) clock = %02d:%02d, want %02d:%02d", tc.in, got.Hour(), got.Minute(), tc.hour, tc.minute)
		}
	}
}

func TestParseDueDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"next tuesday", "01/15/2026", "2026-13-40", ""} {
		if _, err := ParseDueDate(in); err == nil {
			t.Fatalf("ParseDueDate(%q): expected error", in)
		}
	}
}

func TestFormatDueDateRoundTrip(t *testing.T) {
	in := "2026-01-22 11:59pm"
	parsed, err := ParseDueDate(in)
	if err != nil {
		t.Fatalf("ParseDueDate: %v", err)
	}
	out := FormatDueDate(parsed)
	if out != in {
		t.Fatalf("FormatDueDate = %q, want %q", out, in)
	}
	reparsed, err := ParseDueDate(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !reparsed.Equal(parsed) {
		t.Fatalf("round trip drifted: %v != %v", reparsed, parsed)
	}
}
