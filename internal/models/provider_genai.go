package models

import (
	"context"

	"github.com/ojashyadav101/lucy/internal/errkind"
	"google.golang.org/genai"
)

// GenAIProvider dispatches completions to Google's Gemini models via the
// genai SDK.
type GenAIProvider struct {
	client *genai.Client
}

// NewGenAIProvider builds a provider bound to apiKey.
func NewGenAIProvider(ctx context.Context, apiKey string) (*GenAIProvider, error) {
	if apiKey == "" {
		return &GenAIProvider{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errkind.Wrap(errkind.AuthError, "genai client", err)
	}
	return &GenAIProvider{client: client}, nil
}

// Name implements Provider.
func (p *GenAIProvider) Name() string { return "genai" }

// Complete implements Provider.
func (p *GenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if p.client == nil {
		return CompletionResult{}, errkind.New(errkind.AuthError, "genai api key not configured")
	}

	var system *genai.Content
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case RoleUser:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		case RoleTool:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{Name: m.ToolCallID, Response: map[string]any{"result": m.Content}},
			}}})
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if system != nil {
		cfg.SystemInstruction = system
	}
	for _, t := range req.Tools {
		cfg.Tools = append(cfg.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  convertGenAISchema(t.Parameters),
			}},
		})
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return CompletionResult{}, errkind.Wrap(errkind.ModelUnavailable, "genai generate", err)
	}
	if len(resp.Candidates) == 0 {
		return CompletionResult{}, errkind.New(errkind.ModelUnavailable, "genai returned no candidates")
	}

	out := Message{Role: RoleAssistant}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		}
	}

	usage := Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return CompletionResult{Message: out, Usage: usage}, nil
}

func convertGenAISchema(params map[string]any) *genai.Schema {
	if params == nil {
		return nil
	}
	schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	props, _ := params["properties"].(map[string]any)
	for name := range props {
		schema.Properties[name] = &genai.Schema{Type: genai.TypeString}
	}
	return schema
}
