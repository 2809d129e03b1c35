package main

import (
	"context"
	"fmt"

	"github.com/ojashyadav101/lucy/internal/channel"
)

// runInteractionLoop drains the Slack adapter's interaction stream until ctx
// is cancelled. Each click resolves (or rejects) a pending HITL approval.
func (a *App) runInteractionLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.slack.Interactions():
			if !ok {
				return
			}
			go a.handleInteraction(ctx, ev)
		}
	}
}

func (a *App) handleInteraction(ctx context.Context, ev channel.InteractionEvent) {
	switch ev.ActionID {
	case "hitl_approve":
		a.resolveApproval(ctx, ev, true)
	case "hitl_deny":
		a.resolveApproval(ctx, ev, false)
	}
}

// resolveApproval pops the pending approval behind ev.Value (the signed HITL
// action_id) exactly once, runs the tool if approve is true, and posts the
// outcome back to the channel and thread the original prompt came from.
func (a *App) resolveApproval(ctx context.Context, ev channel.InteractionEvent, approve bool) {
	workspaceID, ok := a.hitl.VerifyActionID(ev.Value)
	if !ok || workspaceID != ev.WorkspaceID {
		_, _ = a.slack.PostText(ctx, ev.ChannelID, ev.ThreadTS, "That approval link is no longer valid.")
		return
	}

	approval, ok := a.hitl.Resolve(ev.Value)
	if !ok {
		_, _ = a.slack.PostText(ctx, ev.ChannelID, ev.ThreadTS, "That approval was already resolved.")
		return
	}

	decision := "denied"
	if approve {
		decision = "approved"
	}
	a.auditLog.LogHITLDecided(ctx, approval.WorkspaceID, ev.Value, decision)

	if !approve {
		_, _ = a.slack.PostText(ctx, ev.ChannelID, ev.ThreadTS, fmt.Sprintf("Cancelled `%s`.", approval.ToolName))
		return
	}

	obs := a.loop.Executor.ExecuteApproved(ctx, *approval)
	if obs.ErrorKind != "" {
		_, _ = a.slack.PostText(ctx, ev.ChannelID, ev.ThreadTS, fmt.Sprintf("`%s` failed: %s", approval.ToolName, obs.Result))
		return
	}
	_, _ = a.slack.PostText(ctx, ev.ChannelID, ev.ThreadTS, fmt.Sprintf("Approved. `%s` completed:\n%s", approval.ToolName, obs.Result))
}
