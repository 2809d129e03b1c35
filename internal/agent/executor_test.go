package agent

import (
	"context"
	"testing"
	"time"

	"github.com/ojashyadav101/lucy/internal/errkind"
	"github.com/ojashyadav101/lucy/internal/infra"
	"github.com/ojashyadav101/lucy/internal/tools"
)

// fakeTool records every invocation it receives and returns a fixed result.
type fakeTool struct {
	name   string
	result string
	calls  int
}

func (f *fakeTool) Name() string                   { return f.name }
func (f *fakeTool) Description() string            { return "" }
func (f *fakeTool) ParameterSchema() map[string]any { return map[string]any{} }
func (f *fakeTool) Invoke(_ context.Context, _ map[string]any) (string, error) {
	f.calls++
	return f.result, nil
}

func newTestExecutor(t *testing.T, tool *fakeTool) *Executor {
	t.Helper()
	registry := tools.NewRegistry()
	registry.Register(tool)
	return &Executor{
		Registry: registry,
		Dedup:    tools.NewDedupWindow(2 * time.Minute),
		HITL:     NewHITLRegistry([]byte("test-secret")),
		Breakers: infra.NewRegistry(infra.DefaultBreakerConfigs()),
		Budgets:  infra.DefaultBudgets(),
		Sem:      infra.NewSemaphore(4),
	}
}

func TestDestructiveCallNeedsApprovalAndNeverRunsInline(t *testing.T) {
	tool := &fakeTool{name: "LUCY_DELETE_CRON", result: "deleted"}
	e := newTestExecutor(t, tool)

	obs := e.executeOne(context.Background(), "ws1", "C123", "1700.01", callRequest{
		ToolCallID: "tc1", ToolName: "LUCY_DELETE_CRON", Parameters: map[string]any{"slug": "x"},
	})

	if obs.ErrorKind != errkind.NeedsApproval {
		t.Fatalf("expected NeedsApproval, got %v", obs.ErrorKind)
	}
	if obs.ActionID == "" {
		t.Fatal("expected a non-empty action id")
	}
	if tool.calls != 0 {
		t.Fatalf("expected the tool to never run inline, got %d calls", tool.calls)
	}
}

func TestExecuteApprovedRunsTheToolExactlyOnce(t *testing.T) {
	tool := &fakeTool{name: "LUCY_DELETE_CRON", result: "deleted"}
	e := newTestExecutor(t, tool)

	obs := e.executeOne(context.Background(), "ws1", "C123", "1700.01", callRequest{
		ToolCallID: "tc1", ToolName: "LUCY_DELETE_CRON", Parameters: map[string]any{"slug": "x"},
	})

	approval, ok := e.HITL.Resolve(obs.ActionID)
	if !ok {
		t.Fatal("expected the pending approval to resolve")
	}
	if _, ok := e.HITL.Resolve(obs.ActionID); ok {
		t.Fatal("expected a second resolve of the same action id to fail")
	}

	result := e.ExecuteApproved(context.Background(), *approval)
	if result.ErrorKind != "" {
		t.Fatalf("expected a clean execution, got error kind %v", result.ErrorKind)
	}
	if tool.calls != 1 {
		t.Fatalf("expected the tool to run exactly once, got %d calls", tool.calls)
	}
}

func TestVerifyActionIDReturnsWorkspaceAndRejectsTampering(t *testing.T) {
	registry := NewHITLRegistry([]byte("test-secret"))
	actionID, err := registry.Create(PendingApproval{ToolName: "LUCY_DELETE_CRON", WorkspaceID: "ws1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	workspaceID, ok := registry.VerifyActionID(actionID)
	if !ok || workspaceID != "ws1" {
		t.Fatalf("expected verification to return ws1, got %q ok=%v", workspaceID, ok)
	}
	if _, ok := registry.VerifyActionID(actionID + "tampered"); ok {
		t.Fatal("expected a tampered action id to fail verification")
	}
}
