package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ojashyadav101/lucy/internal/errkind"
)

// ToolClass buckets tool calls for timeout-budget and metrics purposes.
type ToolClass string

const (
	ClassMetaBroker  ToolClass = "meta_broker"
	ClassIntegration ToolClass = "integration"
	ClassLLMCall     ToolClass = "llm_call"
	ClassDefault     ToolClass = "default"
)

// integrationPrefixes lists the tool-name prefixes that belong to the
// integration class (one per connected external service).
var integrationPrefixes = []string{
	"GOOGLECALENDAR_", "GMAIL_", "GOOGLEDRIVE_", "GOOGLEDOCS_", "GOOGLESHEETS_",
	"GITHUB_", "LINEAR_", "NOTION_", "SLACK_", "JIRA_", "TRELLO_", "FIGMA_", "ASANA_",
}

// ClassifyTool buckets a tool name into its timeout class by name prefix.
func ClassifyTool(toolName string) ToolClass {
	upper := strings.ToUpper(toolName)
	if strings.HasPrefix(upper, "COMPOSIO_") || strings.HasPrefix(upper, "META_") {
		return ClassMetaBroker
	}
	for _, p := range integrationPrefixes {
		if strings.HasPrefix(upper, p) {
			return ClassIntegration
		}
	}
	if strings.HasPrefix(upper, "LLM_") || toolName == "llm_call" {
		return ClassLLMCall
	}
	return ClassDefault
}

// Budgets holds the per-class timeout budgets.
type Budgets struct {
	MetaBroker  time.Duration
	Integration time.Duration
	LLMCall     time.Duration
	Default     time.Duration
}

// DefaultBudgets matches the spec's fixed per-class seconds.
func DefaultBudgets() Budgets {
	return Budgets{
		MetaBroker:  45 * time.Second,
		Integration: 20 * time.Second,
		LLMCall:     90 * time.Second,
		Default:     30 * time.Second,
	}
}

// For returns the budget for a class.
func (b Budgets) For(class ToolClass) time.Duration {
	switch class {
	case ClassMetaBroker:
		return b.MetaBroker
	case ClassIntegration:
		return b.Integration
	case ClassLLMCall:
		return b.LLMCall
	default:
		return b.Default
	}
}

// WithTimeout runs fn bounded by the budget for toolName's class, returning
// an errkind.ToolTimeout error if it does not complete in time.
func WithTimeout(ctx context.Context, budgets Budgets, toolName string, fn func(context.Context) (string, error)) (string, error) {
	class := ClassifyTool(toolName)
	budget := budgets.For(class)

	timeoutCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := fn(timeoutCtx)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-timeoutCtx.Done():
		return "", errkind.New(errkind.ToolTimeout, fmt.Sprintf("tool %q timed out after %.0fs", toolName, budget.Seconds()))
	}
}

// Semaphore bounds the number of tool calls executing concurrently
// process-wide, independent of per-request limits.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore builds a Semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (s *Semaphore) Release() {
	<-s.slots
}
