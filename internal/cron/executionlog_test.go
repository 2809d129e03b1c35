package cron

import (
	"strings"
	"testing"
	"time"
)

func TestFormatAndParseLogRoundTrip(t *testing.T) {
	at := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	entryLine := FormatEntry(at, 250*time.Millisecond, StatusDelivered)
	body := entryLine + entryLine // two identical entries

	entries := ParseLog(body)
	if len(entries) != 2 {
		t.Fatalf("expected 2 parsed entries, got %d", len(entries))
	}
	if !entries[0].Timestamp.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, entries[0].Timestamp)
	}
	if entries[0].ElapsedMS != 250 {
		t.Fatalf("expected elapsed 250ms, got %d", entries[0].ElapsedMS)
	}
	if entries[0].Status != StatusDelivered {
		t.Fatalf("expected status delivered, got %q", entries[0].Status)
	}
}

func TestParseLogIgnoresUnrelatedLines(t *testing.T) {
	body := "some narrative text\n" + FormatEntry(time.Now(), time.Second, StatusFailed) + "more notes\n"
	entries := ParseLog(body)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Status != StatusFailed {
		t.Fatalf("expected failed status, got %q", entries[0].Status)
	}
}

func TestDefaultDependencyPredicateRequiresTodayDelivered(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, loc)

	yesterday := []LogEntry{{Timestamp: now.AddDate(0, 0, -1), Status: StatusDelivered}}
	if DefaultDependencyPredicate(yesterday, loc, now) {
		t.Fatal("expected a stale (yesterday's) delivered entry to NOT satisfy the gate")
	}

	todayFailed := []LogEntry{{Timestamp: now.Add(-time.Hour), Status: StatusFailed}}
	if DefaultDependencyPredicate(todayFailed, loc, now) {
		t.Fatal("expected today's failed entry to NOT satisfy the gate")
	}

	todayDelivered := []LogEntry{
		{Timestamp: now.Add(-2 * time.Hour), Status: StatusFailed},
		{Timestamp: now.Add(-time.Hour), Status: StatusDelivered},
	}
	if !DefaultDependencyPredicate(todayDelivered, loc, now) {
		t.Fatal("expected today's most recent delivered entry to satisfy the gate")
	}
}

func TestEntryHeaderFormatIsStable(t *testing.T) {
	line := FormatEntry(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), time.Second, StatusSkipped)
	if !strings.Contains(line, "elapsed: 1000ms") || !strings.Contains(line, "status: skipped") {
		t.Fatalf("unexpected entry format: %q", line)
	}
}
