package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts both standard 5-field expressions and 6-field ones with
// an optional leading seconds field, plus the @hourly/@daily descriptors.
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Schedule resolves a cron expression's next fire time in a fixed timezone.
type Schedule struct {
	Expr string
	Loc  *time.Location
	spec cron.Schedule
}

// NewSchedule parses expr in the named timezone, defaulting to UTC for an
// unrecognized or empty zone name.
func NewSchedule(expr, timezone string) (Schedule, error) {
	spec, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return Schedule{Expr: expr, Loc: loc, spec: spec}, nil
}

// Next returns the next fire time strictly after now, in the schedule's
// timezone.
func (s Schedule) Next(now time.Time) time.Time {
	return s.spec.Next(now.In(s.Loc))
}
