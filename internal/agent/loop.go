package agent

import (
	"context"
	"strconv"
	"time"

	"github.com/ojashyadav101/lucy/internal/models"
	"github.com/ojashyadav101/lucy/internal/observability"
	"github.com/ojashyadav101/lucy/internal/tools"
)

// LoopPhase names where a Run currently sits in the plan/tool/observe/reply
// state machine, for tracing and logging.
type LoopPhase string

const (
	PhaseInit         LoopPhase = "init"
	PhaseRoute        LoopPhase = "route"
	PhaseExecuteTools LoopPhase = "execute_tools"
	PhaseComplete     LoopPhase = "complete"
)

// Loop limits. Fixed rather than configurable: the spec names these as
// concrete constants, not tunables.
const (
	MaxIterations           = 6
	SignatureRepeatLimit    = 3
	WallClockCap            = 3 * time.Minute
	maxNonSystemHistoryKept = 40
)

// LoopState tracks one Run's progress through the state machine.
type LoopState struct {
	Phase            LoopPhase
	Iteration        int
	Messages         []models.Message
	prevSignatures   []string // the previous iteration's tool-call signature set
	repeatCount      int
	startedAt        time.Time
	lastIterAllError bool
}

// Result is what a completed Run returns to its caller (the chat adapter).
type Result struct {
	Text          string
	Tier          models.Tier
	Intent        models.Intent
	ToolCallsMade []string
	Usage         models.Usage
	ForceStopped  bool
	ForceStopWhy  string
}

// Input is everything one Run needs beyond the prebuilt tool registry and
// router already held by Loop.
type Input struct {
	WorkspaceID   string
	ChannelID     string
	ThreadTS      string
	TaskID        string
	SystemPrompt  string // the built prompt, becomes the leading system message via the router
	History       []models.Message
	UserMessage   string
	Tier          models.Tier
	Intent        models.Intent
	ToolSpecs     []models.ToolSpec
	TZOffsetHours float64
	TZLabel       string
}

// Loop orchestrates prompt -> LLM call -> tool calls -> observations ->
// reply, enforcing the termination guards.
type Loop struct {
	Router   *models.Router
	Executor *Executor
	Metrics  *observability.Metrics
	Tracer   *observability.Tracer
	Now      func() time.Time
}

// NewLoop builds a Loop. now defaults to time.Now if nil.
func NewLoop(router *models.Router, executor *Executor, metrics *observability.Metrics, tracer *observability.Tracer, now func() time.Time) *Loop {
	if now == nil {
		now = time.Now
	}
	return &Loop{Router: router, Executor: executor, Metrics: metrics, Tracer: tracer, Now: now}
}

// Run drives one full agentic turn to completion or a termination guard.
func (l *Loop) Run(ctx context.Context, requestID string, in Input) (Result, error) {
	var trace *observability.Trace
	if l.Tracer != nil {
		trace = l.Tracer.NewTrace(ctx, requestID, "")
	}

	state := &LoopState{
		Phase:     PhaseInit,
		Messages:  append(append([]models.Message{}, in.History...), models.Message{Role: models.RoleUser, Content: in.UserMessage}),
		startedAt: l.Now(),
	}

	var toolCallsMade []string
	var lastUsage models.Usage

	for {
		if state.Iteration >= MaxIterations {
			return l.finish(state, trace, "reached max iterations", toolCallsMade, lastUsage, in), nil
		}
		if l.Now().Sub(state.startedAt) > WallClockCap {
			return l.finish(state, trace, "exceeded wall-clock cap", toolCallsMade, lastUsage, in), nil
		}

		state.Phase = PhaseRoute
		var routeSpan *observability.Span
		if trace != nil {
			routeSpan = trace.Span("route", map[string]string{"iteration": strconv.Itoa(state.Iteration)})
		}

		result, err := l.Router.Route(ctx, models.RouteRequest{
			Messages:      l.trimmedMessages(state),
			Tier:          in.Tier,
			WorkspaceID:   in.WorkspaceID,
			TaskID:        in.TaskID,
			Tools:         in.ToolSpecs,
			TZOffsetHours: in.TZOffsetHours,
			TZLabel:       in.TZLabel,
			SoulText:      in.SystemPrompt,
		})
		if routeSpan != nil {
			routeSpan.Finish(err)
		}
		if err != nil {
			if trace != nil {
				trace.Finish()
			}
			return Result{}, err
		}
		lastUsage = result.Usage

		assistantMsg := result.Message
		state.Messages = append(state.Messages, assistantMsg)

		if len(assistantMsg.ToolCalls) == 0 {
			state.Phase = PhaseComplete
			if trace != nil {
				trace.Finish()
			}
			return Result{
				Text:          ProcessOutput(assistantMsg.Content),
				Tier:          in.Tier,
				Intent:        in.Intent,
				ToolCallsMade: toolCallsMade,
				Usage:         lastUsage,
			}, nil
		}

		// Force-stop guard: same tool signature N consecutive iterations.
		sigs := make([]string, len(assistantMsg.ToolCalls))
		for i, tc := range assistantMsg.ToolCalls {
			sigs[i] = tools.Signature(tc.Name, tc.Arguments)
		}
		repeatsPrev := sameSignatureSet(sigs, state.prevSignatures)
		if repeatsPrev {
			state.repeatCount++
		} else {
			state.repeatCount = 1
		}
		if state.repeatCount >= SignatureRepeatLimit {
			return l.finish(state, trace, "I appear to be looping", toolCallsMade, lastUsage, in), nil
		}

		// Force-stop guard: prior iteration was all-error observations and
		// the model re-issued the identical call set.
		if state.lastIterAllError && state.Iteration > 0 && repeatsPrev {
			return l.finish(state, trace, "tool calls are repeatedly failing", toolCallsMade, lastUsage, in), nil
		}
		state.prevSignatures = sigs

		state.Phase = PhaseExecuteTools
		var execSpan *observability.Span
		if trace != nil {
			execSpan = trace.Span("execute_tools", map[string]string{"count": strconv.Itoa(len(assistantMsg.ToolCalls))})
		}

		reqs := make([]callRequest, len(assistantMsg.ToolCalls))
		for i, tc := range assistantMsg.ToolCalls {
			reqs[i] = callRequest{ToolCallID: tc.ID, ToolName: tc.Name, Parameters: tc.Arguments}
			toolCallsMade = append(toolCallsMade, tc.Name)
		}
		observations := l.Executor.ExecuteBatch(ctx, in.WorkspaceID, in.ChannelID, in.ThreadTS, reqs)
		if execSpan != nil {
			execSpan.Finish(nil)
		}

		allError := true
		for _, obs := range observations {
			if obs.ErrorKind == "" {
				allError = false
			}
			state.Messages = append(state.Messages, models.Message{
				Role:       models.RoleTool,
				Content:    obs.Result,
				ToolCallID: obs.ToolCallID,
			})
		}
		state.lastIterAllError = allError

		state.Iteration++
	}
}

func (l *Loop) finish(state *LoopState, trace *observability.Trace, why string, toolCallsMade []string, usage models.Usage, in Input) Result {
	if trace != nil {
		trace.Finish()
	}
	return Result{
		Text:          "I appear to be looping on this — " + why + ". Let me know how you'd like to proceed.",
		Tier:          in.Tier,
		Intent:        in.Intent,
		ToolCallsMade: toolCallsMade,
		Usage:         usage,
		ForceStopped:  true,
		ForceStopWhy:  why,
	}
}

// trimmedMessages keeps the system message (if any, always first in
// History) plus the last 40 non-system items, per the context-window
// policy.
func (l *Loop) trimmedMessages(state *LoopState) []models.Message {
	var system []models.Message
	var rest []models.Message
	for _, m := range state.Messages {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}
	if len(rest) > maxNonSystemHistoryKept {
		rest = rest[len(rest)-maxNonSystemHistoryKept:]
	}
	return append(system, rest...)
}

func sameSignatureSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]int{}
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
