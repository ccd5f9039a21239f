package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/recipebox/recipebox/internal/schema"
	"github.com/recipebox/recipebox/internal/shared/llmutils"
)

// OpenAIProvider speaks the OpenAI-compatible chat completions API.
type OpenAIProvider struct {
	httpClient
}

var _ schema.LLMProvider = (*OpenAIProvider)(nil)

// Complete implements schema.LLMProvider.
func (p *OpenAIProvider) Complete(
	ctx context.Context,
	messages []schema.Message,
	tools []schema.ToolDefinition,
	systemPrompt string,
) (schema.LLMResponse, error) {
	body := map[string]any{
		"model":       p.model,
		"messages":    convertMessagesToOpenAI(messages, systemPrompt),
		"max_tokens":  p.maxTokens,
		"temperature": p.temperature,
	}
	if len(tools) > 0 {
		body["tools"] = convertToolsToOpenAI(tools)
		body["tool_choice"] = "auto"
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	raw, err := p.post(ctx, "/chat/completions", body, headers)
	if err != nil {
		return schema.LLMResponse{}, err
	}
	return parseOpenAIResponse(p.name, raw)
}

// ---------------------------------------------------------------------------
// Request conversion
// ---------------------------------------------------------------------------

// convertMessagesToOpenAI renders the history in chat-completions form. The
// system prompt becomes a synthetic leading "system" message; each tool
// result becomes its own "tool" message.
func convertMessagesToOpenAI(messages []schema.Message, systemPrompt string) []map[string]any {
	out := make([]map[string]any, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, map[string]any{"role": "system", "content": systemPrompt})
	}

	for _, msg := range messages {
		switch msg.Role {
		case schema.RoleUser:
			out = append(out, map[string]any{
				"role":    "user",
				"content": userContentToOpenAI(msg.Content),
			})

		case schema.RoleAssistant:
			if isEmptyAssistant(msg) {
				continue
			}
			wire := map[string]any{"role": "assistant", "content": nil}
			if msg.Text != nil {
				wire["content"] = *msg.Text
			}
			if len(msg.ToolCalls) > 0 {
				calls := make([]map[string]any, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					args, _ := json.Marshal(tc.Arguments)
					calls[i] = map[string]any{
						"id":   tc.ID,
						"type": "function",
						"function": map[string]any{
							"name":      tc.Name,
							"arguments": string(args),
						},
					}
				}
				wire["tool_calls"] = calls
			}
			out = append(out, wire)

		case schema.RoleTool:
			for _, r := range msg.Results {
				out = append(out, map[string]any{
					"role":         "tool",
					"tool_call_id": r.ToolUseID,
					"content":      r.Content,
				})
			}
		}
	}
	return out
}

// userContentToOpenAI sends a lone text block as a plain string and anything
// else as a content-part array with images as data URLs.
func userContentToOpenAI(blocks []schema.ContentBlock) any {
	if len(blocks) == 1 && blocks[0].Type == schema.BlockText {
		return blocks[0].Text
	}
	parts := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case schema.BlockText:
			parts = append(parts, map[string]any{"type": "text", "text": b.Text})
		case schema.BlockImage:
			parts = append(parts, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": "data:" + b.MediaType + ";base64," + b.Data,
				},
			})
		}
	}
	return parts
}

func convertToolsToOpenAI(tools []schema.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		params := t.InputSchema
		if params == nil {
			params = schema.EmptyInputSchema()
		}
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// openAIRespBody is the subset of the chat completion response we care about.
type openAIRespBody struct {
	Choices *[]struct {
		Message *struct {
			Content   any `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func parseOpenAIResponse(provider string, raw []byte) (schema.LLMResponse, error) {
	var body openAIRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.LLMResponse{}, &ResponseError{Provider: provider, Reason: "decode body", Err: err}
	}
	if body.Choices == nil {
		return schema.LLMResponse{}, &ResponseError{Provider: provider, Reason: "missing choices"}
	}
	if len(*body.Choices) == 0 {
		return schema.LLMResponse{}, &ResponseError{Provider: provider, Reason: "empty choices"}
	}
	choice := (*body.Choices)[0]
	if choice.Message == nil {
		return schema.LLMResponse{}, &ResponseError{Provider: provider, Reason: "missing choices[0].message"}
	}
	msg := choice.Message

	var text string
	switch c := msg.Content.(type) {
	case string:
		text = c
	case []any:
		// Some compatible servers return content parts even for assistant text.
		var sb strings.Builder
		for _, part := range c {
			if m, ok := part.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					sb.WriteString(s)
				}
			}
		}
		text = sb.String()
	}
	text = strings.TrimSpace(llmutils.StripThink(text))

	var calls []schema.ToolCall
	for _, tc := range msg.ToolCalls {
		args, err := repairJSON(tc.Function.Arguments)
		if err != nil {
			slog.Warn("failed to parse tool arguments", "tool", tc.Function.Name, "err", err)
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		calls = append(calls, schema.ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
	}

	resp := schema.NewLLMResponse(text, calls)
	resp.StopReason = choice.FinishReason
	resp.Usage = schema.Usage{
		InputTokens:  body.Usage.PromptTokens,
		OutputTokens: body.Usage.CompletionTokens,
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// JSON repair
// ---------------------------------------------------------------------------

// repairJSON decodes tool arguments, retrying after trimming trailing garbage
// that some models emit when truncated. It always returns a usable object:
// on failure the object is empty and err explains why.
func repairJSON(raw string) (schema.Object, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return schema.Object{}, nil
	}

	var out schema.Object
	if err := json.Unmarshal([]byte(raw), &out); err == nil && out != nil {
		return out, nil
	}

	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	out = nil
	if err := json.Unmarshal([]byte(stripped), &out); err == nil && out != nil {
		return out, nil
	}

	if i := strings.LastIndex(raw, "}"); i >= 0 {
		out = nil
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil && out != nil {
			return out, nil
		}
	}

	return schema.Object{}, fmt.Errorf("cannot repair JSON: %s", llmutils.Truncate(raw, 120))
}
