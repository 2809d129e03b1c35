package cron

import (
	"testing"
	"time"
)

func TestNewScheduleDefaultsToUTCOnUnknownZone(t *testing.T) {
	sched, err := NewSchedule("0 9 * * *", "Not/AZone")
	if err != nil {
		t.Fatalf("expected unknown zone to fall back, got error: %v", err)
	}
	if sched.Loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", sched.Loc)
	}
}

func TestNewScheduleRejectsInvalidExpression(t *testing.T) {
	if _, err := NewSchedule("not a cron expression", "UTC"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNextAdvancesToTheConfiguredTime(t *testing.T) {
	sched, err := NewSchedule("30 9 * * *", "UTC")
	if err != nil {
		t.Fatalf("new schedule: %v", err)
	}
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	next := sched.Next(now)
	if next.Hour() != 9 || next.Minute() != 30 || next.Day() != now.Day() {
		t.Fatalf("expected next fire at 09:30 same day, got %v", next)
	}
}
