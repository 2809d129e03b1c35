package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer persists an Event beyond the structured log. Nil-safe: a Logger
// with no Writer configured just logs.
type Writer interface {
	Write(ctx context.Context, event *Event) error
	Close() error
}

// Logger is a structured, async-buffered audit logger. A disabled Logger
// (Config.Enabled == false) makes every method a no-op, so call sites never
// need to nil-check it.
type Logger struct {
	config Config
	slog   *slog.Logger
	writer Writer

	buffer chan *Event
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewLogger builds a Logger. If cfg.PostgresDSN is set, writer should be a
// *PostgresWriter opened against it; callers that don't want persistence
// pass nil.
func NewLogger(cfg Config, logger *slog.Logger, writer Writer) *Logger {
	if !cfg.Enabled {
		return &Logger{config: cfg}
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		config: cfg,
		slog:   logger.With("component", "audit"),
		writer: writer,
		buffer: make(chan *Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.drain()
	return l
}

// Close drains any buffered events and closes the underlying writer.
func (l *Logger) Close() error {
	if !l.config.Enabled {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	if l.writer != nil {
		return l.writer.Close()
	}
	return nil
}

// Log records one event, filling in ID/Timestamp if unset.
func (l *Logger) Log(ctx context.Context, event *Event) {
	if !l.config.Enabled || !l.shouldLog(event.Level) {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case l.buffer <- event:
	default:
		l.write(ctx, event)
	}
}

// LogToolInvocation logs a tool call about to run.
func (l *Logger) LogToolInvocation(ctx context.Context, workspaceID, toolName, toolCallID string, input []byte, attempt int) {
	l.Log(ctx, &Event{
		Kind: KindToolInvocation, Level: LevelInfo, WorkspaceID: workspaceID,
		ToolName: toolName, ToolCallID: toolCallID, Action: "tool_invoked",
		Details: map[string]any{"input_hash": hashBytes(input), "attempt": attempt},
	})
}

// LogToolCompletion logs a tool call's outcome.
func (l *Logger) LogToolCompletion(ctx context.Context, workspaceID, toolName, toolCallID string, success bool, outputSize int, duration time.Duration) {
	level := LevelInfo
	if !success {
		level = LevelWarn
	}
	l.Log(ctx, &Event{
		Kind: KindToolCompletion, Level: level, WorkspaceID: workspaceID,
		ToolName: toolName, ToolCallID: toolCallID, Action: "tool_completed", Duration: duration,
		Details: map[string]any{"success": success, "output_size": outputSize, "duration_ms": duration.Milliseconds()},
	})
}

// LogToolDenied logs a dedup or destructive-action denial.
func (l *Logger) LogToolDenied(ctx context.Context, workspaceID, toolName, toolCallID, reason string) {
	l.Log(ctx, &Event{
		Kind: KindToolDenied, Level: LevelWarn, WorkspaceID: workspaceID,
		ToolName: toolName, ToolCallID: toolCallID, Action: "tool_denied",
		Details: map[string]any{"reason": reason},
	})
}

// LogHITLRequested logs a destructive action pending human approval.
func (l *Logger) LogHITLRequested(ctx context.Context, workspaceID, toolName, actionID string) {
	l.Log(ctx, &Event{
		Kind: KindHITLRequested, Level: LevelInfo, WorkspaceID: workspaceID,
		ToolName: toolName, ActionID: actionID, Action: "hitl_requested",
		Details: map[string]any{"action_id": actionID},
	})
}

// LogHITLDecided logs an approval or denial resolving a pending action.
func (l *Logger) LogHITLDecided(ctx context.Context, workspaceID, actionID, decision string) {
	l.Log(ctx, &Event{
		Kind: KindHITLDecided, Level: LevelInfo, WorkspaceID: workspaceID,
		ActionID: actionID, Action: "hitl_decided",
		Details: map[string]any{"action_id": actionID, "decision": decision},
	})
}

// LogModelCall logs one completed LLM call.
func (l *Logger) LogModelCall(ctx context.Context, workspaceID, provider, model, tier string, promptTokens, outputTokens int) {
	l.Log(ctx, &Event{
		Kind: KindModelCall, Level: LevelInfo, WorkspaceID: workspaceID, Action: "model_call",
		Details: map[string]any{
			"provider": provider, "model": model, "tier": tier,
			"prompt_tokens": promptTokens, "output_tokens": outputTokens,
		},
	})
}

// LogCronRun logs a cron fire's final outcome.
func (l *Logger) LogCronRun(ctx context.Context, workspaceID, slug, status string, duration time.Duration) {
	level := LevelInfo
	if status == "failed" {
		level = LevelError
	}
	l.Log(ctx, &Event{
		Kind: KindCronRun, Level: level, WorkspaceID: workspaceID, Action: "cron_run", Duration: duration,
		Details: map[string]any{"slug": slug, "status": status, "duration_ms": duration.Milliseconds()},
	})
}

func (l *Logger) drain() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.buffer:
			l.write(context.Background(), event)
		case <-l.done:
			for {
				select {
				case event := <-l.buffer:
					l.write(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(ctx context.Context, event *Event) {
	attrs := []any{
		"audit_id", event.ID,
		"audit_kind", event.Kind,
		"action", event.Action,
		"timestamp", event.Timestamp.Format(time.RFC3339Nano),
	}
	if event.WorkspaceID != "" {
		attrs = append(attrs, "workspace_id", event.WorkspaceID)
	}
	if event.ToolName != "" {
		attrs = append(attrs, "tool_name", event.ToolName)
	}
	if event.ToolCallID != "" {
		attrs = append(attrs, "tool_call_id", event.ToolCallID)
	}
	if event.ActionID != "" {
		attrs = append(attrs, "action_id", event.ActionID)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}
	for k, v := range event.Details {
		attrs = append(attrs, k, v)
	}

	switch event.Level {
	case LevelWarn:
		l.slog.Warn("audit", attrs...)
	case LevelError:
		l.slog.Error("audit", attrs...)
	default:
		l.slog.Info("audit", attrs...)
	}

	if l.writer != nil {
		if raw, err := json.Marshal(event.Details); err == nil {
			event.Payload = raw
		}
		if err := l.writer.Write(ctx, event); err != nil {
			l.slog.Error("audit writer failed", "error", err)
		}
	}
}

func (l *Logger) shouldLog(level Level) bool {
	rank := map[Level]int{LevelInfo: 0, LevelWarn: 1, LevelError: 2}
	min := l.config.Level
	if min == "" {
		min = LevelInfo
	}
	return rank[level] >= rank[min]
}

func hashBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])[:16]
}
