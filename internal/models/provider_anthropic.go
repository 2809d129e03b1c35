package models

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ojashyadav101/lucy/internal/errkind"
)

// AnthropicProvider dispatches completions to Anthropic's Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
}

// NewAnthropicProvider builds a provider bound to apiKey.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	if apiKey == "" {
		return &AnthropicProvider{}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete implements Provider. Anthropic separates the system prompt from
// the message list, so a leading RoleSystem message in req is hoisted into
// params.System rather than sent as a turn.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if p.client == nil {
		return CompletionResult{}, errkind.New(errkind.AuthError, "anthropic api key not configured")
	}

	var system string
	var turns []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleUser:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case RoleTool:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  turns,
		MaxTokens: 4096,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{Properties: t.Parameters},
			},
		})
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResult{}, errkind.Wrap(errkind.ModelUnavailable, "anthropic completion", err)
	}

	out := Message{Role: RoleAssistant}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += variant.Text
		case anthropic.ToolUseBlock:
			args, _ := variant.Input.(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: variant.ID, Name: variant.Name, Arguments: args})
		}
	}

	return CompletionResult{
		Message: out,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}
