package fastpath

import (
	"regexp"
	"strings"

	"github.com/ojashyadav101/lucy/internal/task"
)

var (
	statusQueryRe      = regexp.MustCompile(`(?i)(what are you (working on|doing)|any (update|progress)|still (there|working)\??|status\??)`)
	taskCancellationRe = regexp.MustCompile(`(?i)^\s*(cancel that|nevermind|never mind|scratch that|stop that|abort)\s*[.!]?\s*$`)
)

// IsStatusQuery reports whether message is asking what the agent is
// currently doing.
func IsStatusQuery(message string) bool {
	return statusQueryRe.MatchString(strings.TrimSpace(message))
}

// IsTaskCancellation reports whether message is asking to cancel the
// in-flight task.
func IsTaskCancellation(message string) bool {
	return taskCancellationRe.MatchString(message)
}

// FormatTaskStatus renders the active tasks for workspaceID as a bulleted
// status reply, or a "nothing in flight" line if there are none.
func FormatTaskStatus(registry *task.Registry, workspaceID string) string {
	active := registry.Active(workspaceID)
	if len(active) == 0 {
		return "Nothing in flight right now."
	}
	var sb strings.Builder
	for _, t := range active {
		sb.WriteString("• *")
		sb.WriteString(truncate(t.Description, 80))
		sb.WriteString("* — ")
		sb.WriteString(string(t.State))
		sb.WriteString(" (")
		sb.WriteString(FormatElapsed(t.Elapsed().Seconds()))
		sb.WriteString(")\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// HandleCancellation cancels the most recent matching task for workspaceID
// (preferring one on threadTS) and returns a confirmation line, or a "no
// active task" line if nothing was cancelled.
func HandleCancellation(registry *task.Registry, workspaceID, threadTS string) string {
	cancelled := registry.CancelMostRecent(workspaceID, threadTS)
	if cancelled == nil {
		return "Nothing active to cancel."
	}
	return "Cancelled: " + truncate(cancelled.Description, 80)
}
