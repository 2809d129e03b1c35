package cron

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// entryHeaderRe matches the "## {iso_timestamp} (elapsed: Xms, status: ...)"
// section header written by AppendEntry.
var entryHeaderRe = regexp.MustCompile(`^## (\S+) \(elapsed: (\d+)ms, status: (\w+)\)`)

// LogEntry is one parsed execution.log section.
type LogEntry struct {
	Timestamp time.Time
	ElapsedMS int
	Status    ExecutionStatus
}

// FormatEntry renders one execution.log section header line.
func FormatEntry(at time.Time, elapsed time.Duration, status ExecutionStatus) string {
	return fmt.Sprintf("## %s (elapsed: %dms, status: %s)\n\n", at.UTC().Format(time.RFC3339), elapsed.Milliseconds(), status)
}

// ParseLog extracts every section header from an execution.log body, in
// file order (oldest first).
func ParseLog(body string) []LogEntry {
	var entries []LogEntry
	for _, line := range strings.Split(body, "\n") {
		m := entryHeaderRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, m[1])
		if err != nil {
			continue
		}
		ms, _ := strconv.Atoi(m[2])
		entries = append(entries, LogEntry{Timestamp: ts, ElapsedMS: ms, Status: ExecutionStatus(m[3])})
	}
	return entries
}

// DependencyPredicate decides whether a dependency cron's execution.log
// satisfies a depends_on gate, given the log's parsed entries and the
// dependent cron's timezone.
type DependencyPredicate func(entries []LogEntry, loc *time.Location, now time.Time) bool

// DefaultDependencyPredicate requires the dependency's most recent entry
// falling within the current calendar day (in loc) to have status
// delivered — not merely that it was ever delivered at some point in the
// past, which would let a stale success satisfy the gate indefinitely.
func DefaultDependencyPredicate(entries []LogEntry, loc *time.Location, now time.Time) bool {
	today := now.In(loc)
	var last *LogEntry
	for i := range entries {
		e := entries[i]
		local := e.Timestamp.In(loc)
		if local.Year() == today.Year() && local.YearDay() == today.YearDay() {
			if last == nil || e.Timestamp.After(last.Timestamp) {
				ecopy := e
				last = &ecopy
			}
		}
	}
	return last != nil && last.Status == StatusDelivered
}
