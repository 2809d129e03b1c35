package models

import (
	"context"
	"encoding/json"

	"github.com/ojashyadav101/lucy/internal/errkind"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider dispatches completions to OpenAI's chat completions API.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider builds a provider bound to apiKey. A provider built with
// an empty key always fails Complete with errkind.AuthError.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	if apiKey == "" {
		return &OpenAIProvider{}
	}
	return &OpenAIProvider{client: openai.NewClient(apiKey)}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if p.client == nil {
		return CompletionResult{}, errkind.New(errkind.AuthError, "openai api key not configured")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	for _, t := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return CompletionResult{}, errkind.Wrap(errkind.ModelUnavailable, "openai completion", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResult{}, errkind.New(errkind.ModelUnavailable, "openai returned no choices")
	}

	choice := resp.Choices[0].Message
	out := Message{Role: Role(choice.Role), Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, parseToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}

	return CompletionResult{
		Message: out,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// parseToolCall decodes a JSON-string arguments payload, attaching
// ParseError rather than failing the whole completion when the model emits
// malformed JSON.
func parseToolCall(id, name, rawArgs string) ToolCall {
	tc := ToolCall{ID: id, Name: name}
	if rawArgs == "" {
		tc.Arguments = map[string]any{}
		return tc
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		tc.ParseError = "invalid_json_arguments"
		tc.Arguments = map[string]any{}
		return tc
	}
	tc.Arguments = args
	return tc
}
