// Package audit provides structured audit logging for tool invocations,
// HITL decisions, and model calls, with an optional Postgres-backed
// persistence layer for the record shape spec.md leaves the schema for.
package audit

import (
	"encoding/json"
	"time"
)

// Kind categorizes an audit event.
type Kind string

const (
	KindToolInvocation Kind = "tool.invocation"
	KindToolCompletion Kind = "tool.completion"
	KindToolDenied     Kind = "tool.denied"
	KindHITLRequested  Kind = "hitl.requested"
	KindHITLDecided    Kind = "hitl.decided"
	KindModelCall      Kind = "model.call"
	KindCronRun        Kind = "cron.run"
)

// Level is audit log severity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is a single audit log entry. Details carries kind-specific fields
// as a JSON object so the Postgres writer can store it as jsonb without
// knowing every kind's shape.
type Event struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Level       Level           `json:"level"`
	Timestamp   time.Time       `json:"timestamp"`
	WorkspaceID string          `json:"workspace_id,omitempty"`
	ThreadTS    string          `json:"thread_ts,omitempty"`
	ToolName    string          `json:"tool_name,omitempty"`
	ToolCallID  string          `json:"tool_call_id,omitempty"`
	ActionID    string          `json:"action_id,omitempty"`
	Action      string          `json:"action"`
	Details     map[string]any  `json:"details,omitempty"`
	Duration    time.Duration   `json:"duration,omitempty"`
	Error       string          `json:"error,omitempty"`
	Payload     json.RawMessage `json:"-"` // marshaled from Details by Logger before the Writer is called
}

// ToolInvocationDetails is the Details shape for KindToolInvocation.
type ToolInvocationDetails struct {
	InputHash string `json:"input_hash,omitempty"`
	Attempt   int    `json:"attempt"`
}

// ToolCompletionDetails is the Details shape for KindToolCompletion.
type ToolCompletionDetails struct {
	Success    bool  `json:"success"`
	OutputSize int   `json:"output_size,omitempty"`
	DurationMS int64 `json:"duration_ms"`
}

// HITLDetails is the Details shape for KindHITLRequested/KindHITLDecided.
type HITLDetails struct {
	ActionID string `json:"action_id"`
	Decision string `json:"decision,omitempty"` // "approved" | "denied", decided events only
}

// ModelCallDetails is the Details shape for KindModelCall.
type ModelCallDetails struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Tier         string `json:"tier"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Config configures the Logger.
type Config struct {
	Enabled bool
	Level   Level
	// PostgresDSN is not read by Logger: events are persisted only when a
	// non-nil Writer is passed to NewLogger, otherwise they go to the
	// structured log alone.
	PostgresDSN string
	BufferSize  int
}

// DefaultConfig returns a usable zero-DSN configuration: log-only.
func DefaultConfig() Config {
	return Config{Enabled: true, Level: LevelInfo, BufferSize: 1000}
}
