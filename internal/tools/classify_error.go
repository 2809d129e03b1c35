package tools

import (
	"strconv"
	"strings"

	"github.com/ojashyadav101/lucy/internal/errkind"
)

// ClassifyExecutionError maps a raw tool-execution failure string into an
// errkind.Kind by substring matching on the conventional status-code and
// reason phrases integrations surface, mirroring how degradation messages
// are chosen for the edge-case gate.
func ClassifyExecutionError(statusCode int, message string) errkind.Kind {
	if statusCode == 0 {
		statusCode = statusCodeFromMessage(message)
	}
	lower := strings.ToLower(message)

	if statusCode == 429 || statusCode >= 500 || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "connection") {
		return errkind.Retryable
	}
	if statusCode == 401 || statusCode == 403 || strings.Contains(lower, "permission") || strings.Contains(lower, "unauthorized") {
		return errkind.AuthError
	}
	if statusCode == 400 || strings.Contains(lower, "validation") || strings.Contains(lower, "invalid") {
		return errkind.InvalidParams
	}
	return errkind.Fatal
}

// statusCodeFromMessage best-efforts an HTTP-looking status code embedded
// in a free-text error message (e.g. "gateway returned 503").
func statusCodeFromMessage(message string) int {
	fields := strings.Fields(message)
	for _, f := range fields {
		if n, err := strconv.Atoi(strings.Trim(f, ".,:")); err == nil && n >= 100 && n < 600 {
			return n
		}
	}
	return 0
}
