package schema

import "context"

// ToolDefinition describes a callable tool as advertised to the model.
// InputSchema is a JSON Schema object (type, properties, required).
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Object `json:"inputSchema"`
}

// EmptyInputSchema is used when a tool server advertises no schema.
func EmptyInputSchema() Object {
	return Object{"type": "object", "properties": map[string]any{}}
}

// ToolExecutor runs tool calls on behalf of the agent loop.
// mcp.Manager is the production implementation.
type ToolExecutor interface {
	Start(ctx context.Context) error
	Stop()
	Tools() []ToolDefinition
	ExecuteTool(ctx context.Context, call ToolCall) (string, error)
}
