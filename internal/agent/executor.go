package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ojashyadav101/lucy/internal/audit"
	"github.com/ojashyadav101/lucy/internal/channel"
	"github.com/ojashyadav101/lucy/internal/errkind"
	"github.com/ojashyadav101/lucy/internal/infra"
	"github.com/ojashyadav101/lucy/internal/observability"
	"github.com/ojashyadav101/lucy/internal/tools"
)

// Observation is the result of one tool call, ready to append as a message.
type Observation struct {
	ToolCallID string
	ToolName   string
	Result     string
	ErrorKind  errkind.Kind // empty if successful
	ActionID   string       // set when ErrorKind == errkind.NeedsApproval
}

// Executor runs the per-call pipeline from dedup through timeout, circuit
// breaker, truncation, and error classification described by the tool
// suite's execution contract.
type Executor struct {
	Registry *tools.Registry
	Dedup    *tools.DedupWindow
	HITL     *HITLRegistry
	Breakers *infra.Registry
	Budgets  infra.Budgets
	Sem      *infra.Semaphore
	Metrics  *observability.Metrics
	// Poster, when set, carries the HITL approval prompt to the channel and
	// thread a destructive tool call came from.
	Poster channel.Poster
	// Audit, when set, records the HITL request half of the approval
	// roundtrip; the decided half is logged by whoever resolves the action.
	Audit *audit.Logger
}

// breakerKeyFor maps a tool name to the circuit breaker it shares with other
// calls to the same backing service, defaulting to the tool's own name when
// no shared service grouping applies.
func breakerKeyFor(toolName string) string {
	switch infra.ClassifyTool(toolName) {
	case infra.ClassMetaBroker:
		return "meta_broker"
	default:
		return toolName
	}
}

// callRequest is one requested tool invocation from a single LLM turn.
type callRequest struct {
	ToolCallID string
	ToolName   string
	Parameters map[string]any
}

// ExecuteBatch runs every call in reqs, subject to the process-wide
// semaphore, in parallel, and returns one Observation per call in the same
// order. channelID and threadTS identify where a destructive call's approval
// prompt should be posted; both may be empty for a channel-less caller (a
// cron run with no delivery channel configured), in which case the approval
// is created but never prompted and can only be resolved out of band.
func (e *Executor) ExecuteBatch(ctx context.Context, workspaceID, channelID, threadTS string, reqs []callRequest) []Observation {
	out := make([]Observation, len(reqs))
	done := make(chan int, len(reqs))
	for i, req := range reqs {
		go func(i int, req callRequest) {
			out[i] = e.executeOne(ctx, workspaceID, channelID, threadTS, req)
			done <- i
		}(i, req)
	}
	for range reqs {
		<-done
	}
	return out
}

func (e *Executor) executeOne(ctx context.Context, workspaceID, channelID, threadTS string, req callRequest) Observation {
	class := infra.ClassifyTool(req.ToolName)

	// Step 1: dedup gate.
	if e.Dedup.CheckAndRecord(req.ToolName, req.Parameters, time.Now()) {
		e.recordMetric(req.ToolName, string(class), "duplicate_blocked")
		return Observation{ToolCallID: req.ToolCallID, ToolName: req.ToolName, ErrorKind: errkind.DuplicateBlocked,
			Result: `{"status":"error","error_type":"duplicate_blocked"}`}
	}

	// Step 2: destructive-action gate. The call never runs here; it runs
	// later via ExecuteApproved once a human resolves the prompt.
	if tools.IsDestructive(req.ToolName) {
		actionID, err := e.HITL.Create(PendingApproval{
			ToolName: req.ToolName, Parameters: req.Parameters, WorkspaceID: workspaceID,
			Description: "approve " + req.ToolName + "?",
			ChannelID:   channelID, ThreadTS: threadTS,
		})
		if err != nil {
			return Observation{ToolCallID: req.ToolCallID, ToolName: req.ToolName, ErrorKind: errkind.Fatal,
				Result: `{"status":"error","error_type":"fatal"}`}
		}
		if e.Audit != nil {
			e.Audit.LogHITLRequested(ctx, workspaceID, req.ToolName, actionID)
		}
		e.promptApproval(ctx, req.ToolName, actionID, channelID, threadTS)
		e.recordMetric(req.ToolName, string(class), "needs_approval")
		return Observation{ToolCallID: req.ToolCallID, ToolName: req.ToolName, ErrorKind: errkind.NeedsApproval, ActionID: actionID,
			Result: `{"status":"needs_approval","action_id":"` + actionID + `"}`}
	}

	return e.runTool(ctx, req)
}

// runTool executes a call for real: semaphore, timeout, circuit breaker,
// invoke, truncate. Shared by the ordinary non-destructive path and by
// ExecuteApproved once a destructive call has been approved.
func (e *Executor) runTool(ctx context.Context, req callRequest) Observation {
	class := infra.ClassifyTool(req.ToolName)

	// Step 3: semaphore + timeout + circuit breaker.
	if err := e.Sem.Acquire(ctx); err != nil {
		return Observation{ToolCallID: req.ToolCallID, ToolName: req.ToolName, ErrorKind: errkind.Fatal,
			Result: `{"status":"error","error_type":"fatal"}`}
	}
	defer e.Sem.Release()

	tool, ok := e.Registry.Get(req.ToolName)
	if !ok {
		return Observation{ToolCallID: req.ToolCallID, ToolName: req.ToolName, ErrorKind: errkind.InvalidParams,
			Result: `{"status":"error","error_type":"invalid_params","error":"unknown tool"}`}
	}

	breaker := e.Breakers.Get(breakerKeyFor(req.ToolName))

	start := time.Now()
	result, err := infra.ExecuteWithResult(breaker, ctx, func(ctx context.Context) (string, error) {
		return infra.WithTimeout(ctx, e.Budgets, req.ToolName, func(ctx context.Context) (string, error) {
			return tool.Invoke(ctx, req.Parameters)
		})
	})
	if e.Metrics != nil {
		e.Metrics.ToolDuration.WithLabelValues(req.ToolName, string(class)).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		kind := errkind.Of(err)
		if kind == errkind.Unknown {
			kind = tools.ClassifyExecutionError(0, err.Error())
		}
		if kind == errkind.ToolTimeout && e.Metrics != nil {
			e.Metrics.ToolTimeouts.WithLabelValues(req.ToolName, string(class)).Inc()
		}
		e.recordMetric(req.ToolName, string(class), string(kind))
		return Observation{ToolCallID: req.ToolCallID, ToolName: req.ToolName, ErrorKind: kind,
			Result: errorResultJSON(string(kind), err.Error())}
	}

	// Step 4: success path truncation.
	e.recordMetric(req.ToolName, string(class), "success")
	return Observation{ToolCallID: req.ToolCallID, ToolName: req.ToolName, Result: tools.TruncateResult(result)}
}

// ExecuteApproved runs a previously human-approved destructive tool call for
// real, reusing the same semaphore/timeout/breaker/truncation path as any
// other call. The destructive gate is never revisited: approval already
// happened.
func (e *Executor) ExecuteApproved(ctx context.Context, approval PendingApproval) Observation {
	return e.runTool(ctx, callRequest{
		ToolCallID: uuid.NewString(),
		ToolName:   approval.ToolName,
		Parameters: approval.Parameters,
	})
}

// promptApproval posts an interactive Approve/Deny message to channelID so a
// human can resolve actionID. A nil Poster or empty channelID leaves the
// approval creatable but unreachable except through a direct Resolve call.
func (e *Executor) promptApproval(ctx context.Context, toolName, actionID, channelID, threadTS string) {
	if e.Poster == nil || channelID == "" {
		return
	}
	blocks, err := approvalBlocks(toolName, actionID)
	if err != nil {
		return
	}
	_, _ = e.Poster.PostBlocks(ctx, channelID, threadTS, blocks)
}

// errorResultJSON builds a tool-error Observation body through json.Marshal
// rather than string concatenation, so a quote or backslash in errText
// can't produce malformed JSON.
func errorResultJSON(errType, errText string) string {
	body, err := json.Marshal(map[string]string{"status": "error", "error_type": errType, "error": errText})
	if err != nil {
		return `{"status":"error","error_type":"` + errType + `"}`
	}
	return string(body)
}

// approvalBlocks builds the Block Kit body for a destructive-action prompt.
// The actionID is carried as both buttons' value; the fixed action_ids
// ("hitl_approve"/"hitl_deny") tell the interaction handler which one fired.
func approvalBlocks(toolName, actionID string) (channel.Blocks, error) {
	body := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("Lucy wants to run `%s`. Approve?", toolName)},
			},
			map[string]any{
				"type": "actions",
				"elements": []any{
					map[string]any{
						"type": "button", "action_id": "hitl_approve", "value": actionID, "style": "primary",
						"text": map[string]any{"type": "plain_text", "text": "Approve"},
					},
					map[string]any{
						"type": "button", "action_id": "hitl_deny", "value": actionID, "style": "danger",
						"text": map[string]any{"type": "plain_text", "text": "Deny"},
					},
				},
			},
		},
	}
	return json.Marshal(body)
}

func (e *Executor) recordMetric(toolName, class, outcome string) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.ToolCalls.WithLabelValues(toolName, class, outcome).Inc()
}
