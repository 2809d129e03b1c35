package tools

import (
	"context"

	"github.com/ojashyadav101/lucy/internal/capability"
)

// MetaBrokerClient exposes the five COMPOSIO_-prefixed meta-tools a model
// can call when the capability retriever falls back (index too small or no
// query match scored above the relevance threshold): discover tools,
// manage app connections, execute several tools in one round trip, and two
// remote-execution primitives.
type MetaBrokerClient struct {
	gateway *GatewayClient
}

// NewMetaBrokerClient builds a client over the same sidecar gateway used by
// the built-in exec/read/write tools.
func NewMetaBrokerClient(gateway *GatewayClient) *MetaBrokerClient {
	return &MetaBrokerClient{gateway: gateway}
}

// Tools returns the meta-broker's five tool definitions, each name-prefixed
// with COMPOSIO_ so infra.ClassifyTool routes them to the meta_broker
// timeout class.
func (m *MetaBrokerClient) Tools() []Tool {
	return []Tool{
		&gatewayTool{
			name: "COMPOSIO_SEARCH_TOOLS", description: "Search the full catalog of connected-app tools by free text.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"query": map[string]any{"type": "string"},
			}, "required": []string{"query"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(m.gateway.post(ctx, "/meta/search_tools", p))
			},
		},
		&gatewayTool{
			name: "COMPOSIO_MANAGE_CONNECTIONS", description: "List, initiate, or revoke a workspace's app connections.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"action": map[string]any{"type": "string"}, "app_slug": map[string]any{"type": "string"},
			}, "required": []string{"action"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(m.gateway.post(ctx, "/meta/manage_connections", p))
			},
		},
		&gatewayTool{
			name: "COMPOSIO_MULTI_EXECUTE_TOOL", description: "Execute several discovered tools in one batched call.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"calls": map[string]any{"type": "array"},
			}, "required": []string{"calls"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(m.gateway.post(ctx, "/meta/multi_execute_tool", p))
			},
		},
		&gatewayTool{
			name: "COMPOSIO_REMOTE_WORKBENCH", description: "Open a scratch remote workbench session for multi-step exploration.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"task": map[string]any{"type": "string"},
			}, "required": []string{"task"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(m.gateway.post(ctx, "/meta/remote_workbench", p))
			},
		},
		&gatewayTool{
			name: "COMPOSIO_REMOTE_BASH", description: "Run a single command in the remote workbench's shell.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"command": map[string]any{"type": "string"},
			}, "required": []string{"command"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(m.gateway.post(ctx, "/meta/remote_bash", p))
			},
		},
	}
}

// DiscoverTools fetches the full current tool catalog for a workspace's
// connected apps, for use as a capability.PopulateFunc. An empty query
// against /meta/search_tools returns everything currently connected rather
// than a filtered subset.
func (m *MetaBrokerClient) DiscoverTools(ctx context.Context) ([]capability.ToolSchema, string, error) {
	raw, err := m.gateway.post(ctx, "/meta/search_tools", map[string]any{"query": ""})
	if err != nil {
		return nil, "", err
	}
	appSlug, _ := raw["app_slug"].(string)
	entries, _ := raw["tools"].([]any)
	schemas := make([]capability.ToolSchema, 0, len(entries))
	for _, e := range entries {
		fields, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, _ := fields["name"].(string)
		description, _ := fields["description"].(string)
		schemaDoc, _ := fields["schema"].(map[string]any)
		var params []string
		if raw, ok := fields["parameters"].([]any); ok {
			for _, p := range raw {
				if s, ok := p.(string); ok {
					params = append(params, s)
				}
			}
		}
		schemas = append(schemas, capability.ToolSchema{
			Name: name, Description: description, Parameters: params,
			RawSchema: schemaDoc, SchemaValid: capability.ValidateSchema(schemaDoc),
		})
	}
	return schemas, appSlug, nil
}
