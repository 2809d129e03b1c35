package workspace

import (
	"fmt"
	"path/filepath"
	"time"
)

func activityLogPath(date time.Time) string {
	return filepath.Join("logs", date.UTC().Format("2006-01-02")+".md")
}

// AppendActivity appends a timestamped markdown bullet to the current UTC
// date's activity log, creating the file if this is the first entry for the
// day.
func (s *Store) AppendActivity(at time.Time, entry string) error {
	line := fmt.Sprintf("- `%s` %s\n", at.UTC().Format("15:04:05"), entry)
	return s.Append(activityLogPath(at), line)
}

// ReadActivity returns the raw markdown activity log for date, or ("",
// false, nil) if nothing was logged that day.
func (s *Store) ReadActivity(date time.Time) (string, bool, error) {
	return s.Read(activityLogPath(date))
}
