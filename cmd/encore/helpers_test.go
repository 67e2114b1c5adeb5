package main

import (
	"testing"
	"time"
)

func TestParseDeadlineRFC3339(t *testing.T) {
	got, err := parseDeadline("2026-09-15T18:00:00Z")
	if err != nil {
		t.Fatalf("parseDeadline: %v", err)
	}
	want := time.Date(2026, 9, 15, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseDeadlineDateOnly(t *testing.T) {
	got, err := parseDeadline("2026-09-15")
	if err != nil {
		t.Fatalf("parseDeadline: %v", err)
	}
	want := time.Date(2026, 9, 15, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want end of day %v", got, want)
	}
}

func TestParseDeadlineRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "  ", "tomorrow", "2026-13-40"} {
		if _, err := parseDeadline(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 42 "); err != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, err)
	}
	for _, value := range []string{"", "0", "-3", "abc"} {
		if _, err := parseID(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	score := 87.5
	if got := formatScore(&score); got != "87.50" {
		t.Fatalf("formatScore = %q", got)
	}
	if got := formatScore(nil); got != "-" {
		t.Fatalf("formatScore(nil) = %q", got)
	}
	rank := 2
	if got := formatRank(&rank); got != "2" {
		t.Fatalf("formatRank = %q", got)
	}
	if got := formatRank(nil); got != "-" {
		t.Fatalf("formatRank(nil) = %q", got)
	}
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatal("yesNo mismatch")
	}
	if orDash("  ") != "-" || orDash("note") != "note" {
		t.Fatal("orDash mismatch")
	}
}
