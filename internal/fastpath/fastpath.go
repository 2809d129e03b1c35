// Package fastpath implements the short-circuit reply paths that answer a
// message without invoking the agent loop: greeting/status/help
// pattern-matched replies, and the status-query / cancellation edge cases.
package fastpath

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	greetingRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|sup|good\s+(morning|afternoon|evening))[!. ]*$`)
	statusRe   = regexp.MustCompile(`(?i)^\s*(what('?s| is) (up|going on)|how('?s| is) it going|you (there|around)\??)\s*$`)
	helpRe     = regexp.MustCompile(`(?i)^\s*(help|what can you do|how do (i|you) use (this|you)|commands)\s*\??\s*$`)
)

// maxFastPathLen is the message-length ceiling for fast-path eligibility.
const maxFastPathLen = 60

// Pool supplies a pre-warmed reply for a named pool (e.g. "greeting",
// "status", "help"), falling back to a literal default when the pool has
// not been warmed yet (startup race, or generation failure).
type Pool interface {
	Pick(poolName string) (string, bool)
}

// Result is the fast path's verdict.
type Result struct {
	IsFast   bool
	Response string
	Reason   string // "greeting" | "status" | "help"
}

var defaultReplies = map[string]string{
	"greeting": "Hey! What can I help with?",
	"status":   "All good here, ready when you are.",
	"help":     "Just tell me what you need in plain language — I'll pull in whatever tools make sense.",
}

// Evaluate matches message against the fast-path patterns. It never fires
// inside a thread at depth > 0, and never for messages over 60 characters.
func Evaluate(pool Pool, message string, threadDepth int) Result {
	if threadDepth > 0 {
		return Result{}
	}
	if len(message) > maxFastPathLen {
		return Result{}
	}

	trimmed := strings.TrimSpace(message)
	var reason string
	switch {
	case greetingRe.MatchString(trimmed):
		reason = "greeting"
	case statusRe.MatchString(trimmed):
		reason = "status"
	case helpRe.MatchString(trimmed):
		reason = "help"
	default:
		return Result{}
	}

	if pool != nil {
		if reply, ok := pool.Pick(reason); ok {
			return Result{IsFast: true, Response: reply, Reason: reason}
		}
	}
	return Result{IsFast: true, Response: defaultReplies[reason], Reason: reason}
}

// FormatElapsed renders a duration in seconds as a short human label, e.g.
// "42s" or "3m".
func FormatElapsed(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", int(seconds))
	}
	return fmt.Sprintf("%dm", int(seconds/60))
}
