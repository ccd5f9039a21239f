package schema

import "context"

// ResponseKind classifies an LLMResponse.
type ResponseKind int

const (
	// ResponseText is a terminal answer with no tool calls.
	ResponseText ResponseKind = iota
	// ResponseToolUse requests tool calls without accompanying text.
	ResponseToolUse
	// ResponseTextWithToolUse requests tool calls and carries text.
	ResponseTextWithToolUse
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseToolUse:
		return "tool_use"
	case ResponseTextWithToolUse:
		return "text_with_tool_use"
	}
	return "text"
}

// Usage reports token counts when the provider returns them.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// LLMResponse is the normalised response from any LLM provider.
type LLMResponse struct {
	Kind       ResponseKind
	Text       string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// NewLLMResponse classifies text and tool calls into a response.
func NewLLMResponse(text string, calls []ToolCall) LLMResponse {
	resp := LLMResponse{Text: text, ToolCalls: calls}
	switch {
	case len(calls) == 0:
		resp.Kind = ResponseText
	case text == "":
		resp.Kind = ResponseToolUse
	default:
		resp.Kind = ResponseTextWithToolUse
	}
	return resp
}

// HasToolCalls reports whether the response requests at least one tool call.
func (r LLMResponse) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// LLMProvider is the interface every LLM backend must satisfy.
type LLMProvider interface {
	// Complete performs one chat-completion round trip. An empty tools slice
	// means no tools are offered; an empty systemPrompt means none is sent.
	Complete(ctx context.Context, messages []Message, tools []ToolDefinition, systemPrompt string) (LLMResponse, error)
	// Name is the registry name of the provider, e.g. "anthropic".
	Name() string
	// Model is the model identifier sent upstream.
	Model() string
}
