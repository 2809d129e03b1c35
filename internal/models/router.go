package models

import (
	"context"
	"fmt"
	"time"

	"github.com/ojashyadav101/lucy/internal/errkind"
	"github.com/ojashyadav101/lucy/internal/infra"
)

// CostLogger receives a fire-and-forget record of token usage per
// completion, for later aggregation. Implementations must not block the
// caller.
type CostLogger func(provider, model string, usage Usage)

// RouteRequest is everything Route needs beyond the tier's model chain.
type RouteRequest struct {
	Messages      []Message
	Tier          Tier
	WorkspaceID   string
	TaskID        string
	Tools         []ToolSpec
	TZOffsetHours float64
	TZLabel       string
	SoulText      string
}

// Router iterates a tier's primary model then its fallback chain, returning
// the first success. All candidates failing raises errkind.ModelUnavailable.
type Router struct {
	Tiers      map[Tier]TierConfig
	Providers  map[string]Provider // keyed by provider name, e.g. "openai"
	Breakers   *infra.Registry
	CostLogger CostLogger
	Now        func() time.Time
}

// NewRouter builds a Router. now defaults to time.Now if nil.
func NewRouter(tiers map[Tier]TierConfig, providers map[string]Provider, breakers *infra.Registry, costLogger CostLogger, now func() time.Time) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{Tiers: tiers, Providers: providers, Breakers: breakers, CostLogger: costLogger, Now: now}
}

// modelCandidate is a "provider/model" pair, e.g. "openai/gpt-4o".
type modelCandidate struct {
	provider string
	model    string
}

func parseCandidate(spec string) modelCandidate {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '/' {
			return modelCandidate{provider: spec[:i], model: spec[i+1:]}
		}
	}
	return modelCandidate{provider: spec, model: spec}
}

// Route builds the system-prefixed message list and iterates the tier's
// model chain until one call succeeds.
func (r *Router) Route(ctx context.Context, req RouteRequest) (CompletionResult, error) {
	tierCfg, ok := r.Tiers[req.Tier]
	if !ok {
		return CompletionResult{}, errkind.New(errkind.InvalidParams, fmt.Sprintf("unknown tier %q", req.Tier))
	}

	messages := append([]Message{r.systemMessage(req)}, req.Messages...)

	candidates := append([]string{tierCfg.PrimaryModel}, tierCfg.FallbackModels...)
	var lastErr error
	for _, spec := range candidates {
		cand := parseCandidate(spec)
		provider, ok := r.Providers[cand.provider]
		if !ok {
			lastErr = errkind.New(errkind.ModelUnavailable, "unknown provider "+cand.provider)
			continue
		}

		var breaker *infra.CircuitBreaker
		if r.Breakers != nil {
			breaker = r.Breakers.Get("model_" + cand.provider)
		}

		call := func(ctx context.Context) (CompletionResult, error) {
			return provider.Complete(ctx, CompletionRequest{Model: cand.model, Messages: messages, Tools: req.Tools})
		}

		var result CompletionResult
		var err error
		if breaker != nil {
			result, err = infra.ExecuteWithResult(breaker, ctx, call)
		} else {
			result, err = call(ctx)
		}
		if err != nil {
			lastErr = err
			continue
		}

		if r.CostLogger != nil {
			go r.CostLogger(cand.provider, cand.model, result.Usage)
		}
		return result, nil
	}

	if lastErr == nil {
		lastErr = errkind.New(errkind.ModelUnavailable, "no model candidates configured for tier "+string(req.Tier))
	}
	return CompletionResult{}, errkind.Wrap(errkind.ModelUnavailable, "all models in tier "+string(req.Tier)+" failed", lastErr)
}

// systemMessage builds the prepended system turn: soul text, a current-time
// block in UTC and the caller's local timezone with today/tomorrow RFC3339
// windows, and the fixed tool-calling rules every tier must obey.
func (r *Router) systemMessage(req RouteRequest) Message {
	now := r.Now().UTC()
	loc := time.FixedZone("local", int(req.TZOffsetHours*3600))
	local := now.In(loc)
	todayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	tomorrowStart := todayStart.Add(24 * time.Hour)

	tzLabel := req.TZLabel
	if tzLabel == "" {
		tzLabel = "UTC"
	}

	content := req.SoulText + "\n\n" +
		"## Current Time\n" +
		"- UTC: " + now.Format(time.RFC3339) + "\n" +
		"- Local (" + tzLabel + "): " + local.Format(time.RFC3339) + "\n" +
		"- Today window: " + todayStart.Format(time.RFC3339) + " to " + tomorrowStart.Format(time.RFC3339) + "\n" +
		"- Tomorrow window: " + tomorrowStart.Format(time.RFC3339) + " to " + tomorrowStart.Add(24*time.Hour).Format(time.RFC3339) + "\n\n" +
		"## Tool-Calling Rules\n" +
		"- Use concrete timestamps computed from the current time block above; never emit template variables.\n" +
		"- If a tool already returned data this turn, do not call it again with identical parameters.\n" +
		"- Never claim a tool listed as available is unavailable.\n"

	return Message{Role: RoleSystem, Content: content}
}
