package models

import (
	"context"
	"encoding/json"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/ojashyadav101/lucy/internal/errkind"
)

// BedrockProvider dispatches completions to AWS Bedrock's Converse API,
// giving the router access to foundation models (Anthropic, Meta, Amazon)
// hosted behind a single AWS-credentialed endpoint.
type BedrockProvider struct {
	client *bedrockruntime.Client
}

// NewBedrockProvider builds a provider using the default AWS credential
// chain for region. A provider with an empty region always fails Complete.
func NewBedrockProvider(ctx context.Context, region string) (*BedrockProvider, error) {
	if region == "" {
		return &BedrockProvider{}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errkind.Wrap(errkind.AuthError, "load aws config", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

// Name implements Provider.
func (p *BedrockProvider) Name() string { return "bedrock" }

// Complete implements Provider using the Converse API, which normalizes
// tool calling across every Bedrock-hosted model family.
func (p *BedrockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if p.client == nil {
		return CompletionResult{}, errkind.New(errkind.AuthError, "bedrock region not configured")
	}

	var system []types.SystemContentBlock
	var turns []types.Message
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
		case RoleUser:
			turns = append(turns, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		case RoleAssistant:
			turns = append(turns, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		case RoleTool:
			turns = append(turns, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: &m.ToolCallID,
						Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: m.Content}},
					},
				}},
			})
		}
	}

	var toolConfig *types.ToolConfiguration
	if len(req.Tools) > 0 {
		toolConfig = &types.ToolConfiguration{}
		for _, t := range req.Tools {
			toolConfig.Tools = append(toolConfig.Tools, &types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        &t.Name,
					Description: &t.Description,
					InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(t.Parameters)},
				},
			})
		}
	}

	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:    &req.Model,
		Messages:   turns,
		System:     system,
		ToolConfig: toolConfig,
	})
	if err != nil {
		return CompletionResult{}, errkind.Wrap(errkind.ModelUnavailable, "bedrock converse", err)
	}

	result := Message{Role: RoleAssistant}
	if msgOutput, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msgOutput.Value.Content {
			switch variant := block.(type) {
			case *types.ContentBlockMemberText:
				result.Content += variant.Value
			case *types.ContentBlockMemberToolUse:
				var args map[string]any
				if raw, marshalErr := json.Marshal(variant.Value.Input); marshalErr == nil {
					_ = json.Unmarshal(raw, &args)
				}
				if args == nil {
					args = map[string]any{}
				}
				result.ToolCalls = append(result.ToolCalls, ToolCall{
					ID:        *variant.Value.ToolUseId,
					Name:      *variant.Value.Name,
					Arguments: args,
				})
			}
		}
	}

	usage := Usage{}
	if out.Usage != nil {
		usage.PromptTokens = int(*out.Usage.InputTokens)
		usage.CompletionTokens = int(*out.Usage.OutputTokens)
	}

	return CompletionResult{Message: result, Usage: usage}, nil
}
