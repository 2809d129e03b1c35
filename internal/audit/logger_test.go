package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewLogger(Config{Enabled: true, Level: LevelInfo, BufferSize: 10}, slog.New(handler), nil)
	t.Cleanup(func() { logger.Close() })
	return logger, &buf
}

func TestLoggerDisabledIsNoop(t *testing.T) {
	logger := NewLogger(Config{Enabled: false}, nil, nil)
	logger.Log(context.Background(), &Event{Kind: KindToolInvocation, Level: LevelInfo, Action: "x"})
	if err := logger.Close(); err != nil {
		t.Fatalf("close disabled logger: %v", err)
	}
}

func TestLogToolInvocationWritesEvent(t *testing.T) {
	logger, buf := newTestLogger(t)
	logger.LogToolInvocation(context.Background(), "ws1", "web_search", "call-1", []byte(`{"q":"go"}`), 1)
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "tool_invoked") || !strings.Contains(out, "web_search") {
		t.Fatalf("expected tool invocation log line, got %q", out)
	}
}

func TestLogToolCompletionMarksFailureAsWarn(t *testing.T) {
	logger, buf := newTestLogger(t)
	logger.LogToolCompletion(context.Background(), "ws1", "web_search", "call-1", false, 0, 5*time.Millisecond)
	logger.Close()
	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Fatalf("expected WARN level for failed completion, got %q", out)
	}
}

func TestLogHITLRequestedAndDecided(t *testing.T) {
	logger, buf := newTestLogger(t)
	logger.LogHITLRequested(context.Background(), "ws1", "delete_file", "action-abc")
	logger.LogHITLDecided(context.Background(), "ws1", "action-abc", "approved")
	logger.Close()
	out := buf.String()
	if !strings.Contains(out, "hitl_requested") || !strings.Contains(out, "hitl_decided") {
		t.Fatalf("expected both hitl events, got %q", out)
	}
}

func TestShouldLogFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, nil)
	logger := NewLogger(Config{Enabled: true, Level: LevelWarn, BufferSize: 10}, slog.New(handler), nil)
	logger.Log(context.Background(), &Event{Kind: KindToolInvocation, Level: LevelInfo, Action: "should be dropped"})
	logger.Close()
	if strings.Contains(buf.String(), "should be dropped") {
		t.Fatalf("expected info-level event to be filtered out at warn threshold")
	}
}

func TestHashBytesStableAndEmpty(t *testing.T) {
	if hashBytes(nil) != "" {
		t.Fatalf("expected empty hash for nil input")
	}
	a := hashBytes([]byte("same"))
	b := hashBytes([]byte("same"))
	if a != b {
		t.Fatalf("expected stable hash, got %q and %q", a, b)
	}
	if hashBytes([]byte("different")) == a {
		t.Fatalf("expected distinct hashes for distinct input")
	}
}
