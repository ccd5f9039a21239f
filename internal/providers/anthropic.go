package providers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/recipebox/recipebox/internal/schema"
	"github.com/recipebox/recipebox/internal/shared/llmutils"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider speaks the Anthropic Messages API.
type AnthropicProvider struct {
	httpClient
}

var _ schema.LLMProvider = (*AnthropicProvider)(nil)

// Complete implements schema.LLMProvider.
func (p *AnthropicProvider) Complete(
	ctx context.Context,
	messages []schema.Message,
	tools []schema.ToolDefinition,
	systemPrompt string,
) (schema.LLMResponse, error) {
	body := map[string]any{
		"model":       p.model,
		"messages":    convertMessagesToAnthropic(messages),
		"max_tokens":  p.maxTokens,
		"temperature": p.temperature,
	}
	if systemPrompt != "" {
		body["system"] = systemPrompt
	}
	if len(tools) > 0 {
		body["tools"] = convertToolsToAnthropic(tools)
	}

	headers := map[string]string{"anthropic-version": anthropicVersion}
	if p.apiKey != "" {
		headers["x-api-key"] = p.apiKey
	}

	raw, err := p.post(ctx, "/messages", body, headers)
	if err != nil {
		return schema.LLMResponse{}, err
	}
	return parseAnthropicResponse(p.name, raw)
}

// ---------------------------------------------------------------------------
// Request conversion
// ---------------------------------------------------------------------------

// convertMessagesToAnthropic renders the history as Messages API turns.
// Tool results travel as tool_result blocks inside a single user turn.
func convertMessagesToAnthropic(messages []schema.Message) []map[string]any {
	out := make([]map[string]any, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case schema.RoleUser:
			out = append(out, map[string]any{
				"role":    "user",
				"content": userContentToAnthropic(msg.Content),
			})

		case schema.RoleAssistant:
			if isEmptyAssistant(msg) {
				continue
			}
			var blocks []any
			if msg.Text != nil && *msg.Text != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": *msg.Text})
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Arguments
				if input == nil {
					input = schema.Object{}
				}
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": input,
				})
			}
			out = append(out, map[string]any{"role": "assistant", "content": blocks})

		case schema.RoleTool:
			blocks := make([]any, 0, len(msg.Results))
			for _, r := range msg.Results {
				block := map[string]any{
					"type":        "tool_result",
					"tool_use_id": r.ToolUseID,
					"content":     r.Content,
				}
				if r.IsError {
					block["is_error"] = true
				}
				blocks = append(blocks, block)
			}
			out = append(out, map[string]any{"role": "user", "content": blocks})
		}
	}
	return out
}

func userContentToAnthropic(blocks []schema.ContentBlock) []any {
	out := make([]any, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case schema.BlockText:
			out = append(out, map[string]any{"type": "text", "text": b.Text})
		case schema.BlockImage:
			out = append(out, map[string]any{
				"type": "image",
				"source": map[string]any{
					"type":       "base64",
					"media_type": b.MediaType,
					"data":       b.Data,
				},
			})
		}
	}
	if len(out) == 0 {
		out = append(out, map[string]any{"type": "text", "text": ""})
	}
	return out
}

// convertToolsToAnthropic renames "parameters" to "input_schema".
func convertToolsToAnthropic(tools []schema.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		inputSchema := t.InputSchema
		if inputSchema == nil {
			inputSchema = schema.EmptyInputSchema()
		}
		out = append(out, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": inputSchema,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// anthropicRespBody models the Messages API response.
type anthropicRespBody struct {
	Content *[]struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`  // type=text
		ID    string          `json:"id"`    // type=tool_use
		Name  string          `json:"name"`  // type=tool_use
		Input json.RawMessage `json:"input"` // type=tool_use
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func parseAnthropicResponse(provider string, raw []byte) (schema.LLMResponse, error) {
	var body anthropicRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.LLMResponse{}, &ResponseError{Provider: provider, Reason: "decode body", Err: err}
	}
	if body.Content == nil {
		return schema.LLMResponse{}, &ResponseError{Provider: provider, Reason: "missing content"}
	}

	var sb strings.Builder
	var calls []schema.ToolCall
	for _, block := range *body.Content {
		switch block.Type {
		case "text":
			sb.WriteString(block.Text)
		case "tool_use":
			id := block.ID
			if id == "" {
				id = "toolu_" + uuid.NewString()
			}
			calls = append(calls, schema.ToolCall{
				ID:        id,
				Name:      block.Name,
				Arguments: schema.ParseObject(block.Input),
			})
		}
	}

	text := strings.TrimSpace(llmutils.StripThink(sb.String()))
	resp := schema.NewLLMResponse(text, calls)
	resp.StopReason = body.StopReason
	resp.Usage = schema.Usage{
		InputTokens:  body.Usage.InputTokens,
		OutputTokens: body.Usage.OutputTokens,
	}
	return resp, nil
}
