// Package tools implements tool classification, dedup/signature gating,
// destructive-action detection, the tool registry, and the concrete tool
// clients (gateway HTTP, meta-broker, browser).
package tools

import "strings"

// idempotentVerbs never trigger mutating-call deduplication even if a
// signature repeats within the dedup window.
var idempotentVerbs = map[string]bool{
	"get": true, "list": true, "search": true, "find": true,
	"fetch": true, "read": true, "check": true, "query": true,
}

// destructiveMarkers, if present anywhere in an upper-cased tool name,
// require human approval before execution.
var destructiveMarkers = []string{
	"DELETE", "REMOVE", "CANCEL", "SEND", "FORWARD", "ARCHIVE", "DESTROY", "REVOKE", "UNSUBSCRIBE",
}

// IsIdempotent reports whether toolName is classified as a read-only
// action, scanning its underscore/hyphen-separated tokens for a known
// idempotent verb.
func IsIdempotent(toolName string) bool {
	lower := strings.ToLower(toolName)
	for _, token := range strings.FieldsFunc(lower, func(r rune) bool { return r == '_' || r == '-' }) {
		if idempotentVerbs[token] {
			return true
		}
	}
	return false
}

// IsDestructive reports whether toolName's upper-cased form contains a
// destructive-action marker, requiring HITL approval before execution.
func IsDestructive(toolName string) bool {
	upper := strings.ToUpper(toolName)
	for _, marker := range destructiveMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
