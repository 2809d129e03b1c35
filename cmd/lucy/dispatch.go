package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ojashyadav101/lucy/internal/agent"
	"github.com/ojashyadav101/lucy/internal/capability"
	"github.com/ojashyadav101/lucy/internal/channel"
	"github.com/ojashyadav101/lucy/internal/fastpath"
	"github.com/ojashyadav101/lucy/internal/models"
	"github.com/ojashyadav101/lucy/internal/prompt"
	"github.com/ojashyadav101/lucy/internal/task"
	"github.com/ojashyadav101/lucy/internal/workspace"
)

// runDispatchLoop drains every ChatEvent the Slack adapter emits until ctx
// is cancelled, handling each one in its own goroutine so a slow agent turn
// in one thread never blocks a fast-path reply in another.
func (a *App) runDispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-a.slack.Events():
			if !ok {
				return
			}
			go a.handleEvent(ctx, event)
		}
	}
}

// threadDepth approximates how deep in a thread this message sits: zero for
// a net-new message, non-zero once it carries a thread_ts distinct from its
// own timestamp.
func threadDepth(event channel.ChatEvent) int {
	if event.ThreadTS == "" || event.ThreadTS == event.MessageTS {
		return 0
	}
	return 1
}

func (a *App) handleEvent(ctx context.Context, event channel.ChatEvent) {
	requestID := uuid.NewString()
	depth := threadDepth(event)

	if depth > 0 {
		if active := a.tasks.Active(event.WorkspaceID); len(active) > 0 {
			switch fastpath.DecideThreadInterrupt(event.Text).Action {
			case fastpath.ActionStatusReply:
				a.postReply(ctx, event, fastpath.FormatTaskStatus(a.tasks, event.WorkspaceID))
				return
			case fastpath.ActionCancelTask:
				a.postReply(ctx, event, fastpath.HandleCancellation(a.tasks, event.WorkspaceID, event.ThreadTS))
				return
			}
		}
	}

	if result := fastpath.Evaluate(nil, event.Text, depth); result.IsFast {
		a.postReply(ctx, event, result.Response)
		return
	}

	if !a.limiter.Allow(event.WorkspaceID) {
		a.postReply(ctx, event, "I'm getting a lot of requests right now — try again in a moment.")
		return
	}

	threadRef := event.ThreadTS
	if threadRef == "" {
		threadRef = event.MessageTS
	}
	threadLogPath := filepath.Join("logs", "threads", escapeThreadRef(threadRef)+".jsonl")
	absThreadLog := filepath.Join(a.store.Root, threadLogPath)
	trace := a.tracer.NewTrace(ctx, requestID, absThreadLog)

	run, taskCtx := a.tasks.Start(ctx, requestID, event.WorkspaceID, event.ThreadTS, summarize(event.Text))
	defer trace.Finish()

	classification := models.Classify(models.ClassifyInput{
		Message:     event.Text,
		ThreadDepth: depth,
	})

	retrieveSpan := trace.Span("capability_retrieve", map[string]string{"tier": string(classification.Tier)})
	retrieval, err := a.retriever.Retrieve(taskCtx, event.Text, nil)
	retrieveSpan.Finish(err)
	if err != nil {
		a.tasks.SetState(run.ID, task.StateFailed)
		a.postReply(ctx, event, "I hit an error looking up tools for that — try again shortly.")
		return
	}

	toolSpecs := a.toolSpecsFor(retrieval)

	systemPrompt := a.buildSystemPrompt(event)

	a.tasks.SetState(run.ID, task.StateWorking)
	loopSpan := trace.Span("agent_loop", map[string]string{"intent": string(classification.Intent)})
	result, err := a.loop.Run(taskCtx, requestID, agent.Input{
		WorkspaceID:  event.WorkspaceID,
		ChannelID:    event.ChannelID,
		ThreadTS:     event.ThreadTS,
		TaskID:       run.ID,
		SystemPrompt: systemPrompt,
		UserMessage:  event.Text,
		Tier:         classification.Tier,
		Intent:       classification.Intent,
		ToolSpecs:    toolSpecs,
	})
	loopSpan.Finish(err)

	for _, name := range result.ToolCallsMade {
		a.retriever.Index.RecordUsage(name)
	}

	if err != nil {
		a.tasks.SetState(run.ID, task.StateFailed)
		a.logger.Error("agent loop failed", "workspace_id", event.WorkspaceID, "error", err)
		a.postReply(ctx, event, "Something went wrong handling that — mind trying again?")
		return
	}

	a.tasks.SetState(run.ID, task.StateDone)
	a.persistMemory(event)
	a.postReply(ctx, event, result.Text)
}

// persistMemory saves the user message to session memory when it contains a
// remember-worthy signal — an explicit ask, a standing preference, or a
// self-reported fact about identity, role, or targets. Consolidation of
// session memory into permanent skill files happens only on an explicit
// periodic cron job, never implicitly during a chat turn.
func (a *App) persistMemory(event channel.ChatEvent) {
	if !workspace.ShouldRememberMessage(event.Text) {
		return
	}
	err := a.store.RememberFact(workspace.MemoryFact{
		Fact:      strings.TrimSpace(event.Text),
		Source:    "slack:" + event.ChannelID,
		Category:  workspace.ClassifyMemoryCategory(event.Text),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		a.logger.Warn("persist session memory failed", "workspace_id", event.WorkspaceID, "error", err)
	}
}

// toolSpecsFor converts a capability retrieval into the tool specs the
// router passes to the model; a fallback result binds only the meta-broker
// discovery tools so the model can still search for what it needs.
func (a *App) toolSpecsFor(result capability.Result) []models.ToolSpec {
	if result.IsFallback {
		var specs []models.ToolSpec
		for _, t := range []string{"COMPOSIO_SEARCH_TOOLS", "COMPOSIO_MANAGE_CONNECTIONS"} {
			if tool, ok := a.loop.Executor.Registry.Get(t); ok {
				specs = append(specs, models.ToolSpec{Name: tool.Name(), Description: tool.Description(), Parameters: tool.ParameterSchema()})
			}
		}
		return specs
	}
	specs := make([]models.ToolSpec, 0, len(result.Tools))
	for _, rec := range result.Tools {
		tool, ok := a.loop.Executor.Registry.Get(rec.ToolName)
		if !ok {
			continue
		}
		specs = append(specs, models.ToolSpec{Name: tool.Name(), Description: tool.Description(), Parameters: tool.ParameterSchema()})
	}
	return specs
}

// buildSystemPrompt assembles the prompt builder's input fresh for this
// call: persona and template are re-read from the workspace every time, per
// the prompt builder's no-caching rule.
func (a *App) buildSystemPrompt(event channel.ChatEvent) string {
	persona, _, _ := a.store.Read("PERSONA.md")
	instructions, _, _ := a.store.Read("INSTRUCTIONS.md")
	skills, _ := a.store.ListSkills()
	team, hasTeam, _ := a.store.ReadTeamSkill()
	company, hasCompany, _ := a.store.ReadCompanySkill()
	memory, _ := a.store.ReadSessionMemory()

	in := prompt.Input{
		PersonaBody:          persona,
		InstructionsTemplate: instructions,
		AvailableSkills:      skills,
		UserMessage:          event.Text,
		MatchingSkillBodies:  matchingSkills(skills, event.Text),
		SessionMemory:        renderSessionMemory(memory),
		ConnectedServices:    []string{"slack"},
	}
	if hasTeam {
		in.TeamSkill = &team
	}
	if hasCompany {
		in.CompanySkill = &company
	}
	return prompt.Build(in)
}

// renderSessionMemory flattens stored facts into the plain strings the
// prompt builder's session_memory section expects.
func renderSessionMemory(facts []workspace.MemoryFact) []string {
	lines := make([]string, 0, len(facts))
	for _, f := range facts {
		lines = append(lines, f.Fact)
	}
	return lines
}

// matchingSkills returns the bodies of skills whose name appears as a
// substring of message, the simplest trigger-pattern match consistent with
// how skill descriptions are authored.
func matchingSkills(skills []workspace.Skill, message string) []prompt.MatchingSkill {
	lower := strings.ToLower(message)
	var matches []prompt.MatchingSkill
	for _, s := range skills {
		if strings.Contains(lower, strings.ToLower(s.Name)) {
			matches = append(matches, prompt.MatchingSkill{Name: s.Name, Body: s.Body})
		}
	}
	return matches
}

func (a *App) postReply(ctx context.Context, event channel.ChatEvent, text string) {
	if _, err := a.slack.PostText(ctx, event.ChannelID, event.ThreadTS, text); err != nil {
		a.logger.Error("post reply failed", "channel", event.ChannelID, "error", err)
	}
}

// escapeThreadRef makes a thread timestamp safe as a filename component.
func escapeThreadRef(ref string) string {
	return strings.ReplaceAll(ref, ".", "_")
}

// summarize trims message to a short label for task-status display.
func summarize(message string) string {
	message = strings.TrimSpace(message)
	if len(message) > 80 {
		return message[:80]
	}
	if message == "" {
		return "(no text)"
	}
	return message
}
