// Package models implements the task classifier, the model router with its
// fallback chain, and the concrete provider adapters it dispatches to.
package models

// Tier names the routing destination for a classified task.
type Tier string

const (
	TierFast     Tier = "fast"
	TierDefault  Tier = "default"
	TierCode     Tier = "code"
	TierResearch Tier = "research"
	TierDocument Tier = "document"
	TierFrontier Tier = "frontier"
)

// Intent names the prompt module a classified message maps to. Prompt
// bodies live in the workspace skill store; Intent only names which one.
type Intent string

const (
	IntentChat         Intent = "chat"
	IntentLookup       Intent = "lookup"
	IntentConfirmation Intent = "confirmation"
	IntentFollowup     Intent = "followup"
	IntentToolUse      Intent = "tool_use"
	IntentCommand      Intent = "command"
	IntentCode         Intent = "code"
	IntentReasoning    Intent = "reasoning"
	IntentDocument     Intent = "document"
)

// TierConfig names a tier's primary model and its ordered fallback chain.
type TierConfig struct {
	PrimaryModel   string
	FallbackModels []string
}
