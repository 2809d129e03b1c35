package tools

import (
	"context"
	"encoding/json"
)

// gatewayTool adapts one GatewayClient operation to the Tool interface.
type gatewayTool struct {
	name        string
	description string
	schema      map[string]any
	invoke      func(ctx context.Context, params map[string]any) (string, error)
}

func (t *gatewayTool) Name() string                      { return t.name }
func (t *gatewayTool) Description() string                { return t.description }
func (t *gatewayTool) ParameterSchema() map[string]any    { return t.schema }
func (t *gatewayTool) Invoke(ctx context.Context, params map[string]any) (string, error) {
	return t.invoke(ctx, params)
}

func encodeResult(v map[string]any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	out, marshalErr := json.Marshal(v)
	if marshalErr != nil {
		return "", marshalErr
	}
	return string(out), nil
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return def
}

// GatewayTools builds the fixed set of tools backed by a GatewayClient:
// exec, process, read, write, edit, web_fetch, session_status.
func GatewayTools(client *GatewayClient) []Tool {
	return []Tool{
		&gatewayTool{
			name: "exec", description: "Run a shell command in the sandbox.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"command": map[string]any{"type": "string"},
			}, "required": []string{"command"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(client.Exec(ctx, stringParam(p, "command"), intParam(p, "timeout_seconds", 30)))
			},
		},
		&gatewayTool{
			name: "process", description: "Inspect or terminate a background process.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"action": map[string]any{"type": "string"}, "pid": map[string]any{"type": "string"},
			}, "required": []string{"action", "pid"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(client.Process(ctx, stringParam(p, "action"), stringParam(p, "pid")))
			},
		},
		&gatewayTool{
			name: "read", description: "Read a file from the sandbox filesystem.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"path": map[string]any{"type": "string"},
			}, "required": []string{"path"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(client.Read(ctx, stringParam(p, "path")))
			},
		},
		&gatewayTool{
			name: "write", description: "Write a file in the sandbox filesystem.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"path": map[string]any{"type": "string"}, "content": map[string]any{"type": "string"},
			}, "required": []string{"path", "content"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(client.Write(ctx, stringParam(p, "path"), stringParam(p, "content")))
			},
		},
		&gatewayTool{
			name: "edit", description: "Find-and-replace edit a file in the sandbox filesystem.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"path": map[string]any{"type": "string"}, "find": map[string]any{"type": "string"}, "replace": map[string]any{"type": "string"},
			}, "required": []string{"path", "find", "replace"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(client.Edit(ctx, stringParam(p, "path"), stringParam(p, "find"), stringParam(p, "replace")))
			},
		},
		&gatewayTool{
			name: "web_fetch", description: "Fetch a URL's rendered content.",
			schema: map[string]any{"type": "object", "properties": map[string]any{
				"url": map[string]any{"type": "string"},
			}, "required": []string{"url"}},
			invoke: func(ctx context.Context, p map[string]any) (string, error) {
				return encodeResult(client.WebFetch(ctx, stringParam(p, "url")))
			},
		},
		&gatewayTool{
			name: "session_status", description: "Report the sandbox session's current health.",
			schema: map[string]any{"type": "object", "properties": map[string]any{}},
			invoke: func(ctx context.Context, _ map[string]any) (string, error) {
				return encodeResult(client.SessionStatus(ctx))
			},
		},
	}
}
