package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/recipebox/recipebox/internal/schema"
	"github.com/recipebox/recipebox/internal/shared/llmutils"
)

// DefaultMaxToolRounds bounds the tool round-trips in one turn.
const DefaultMaxToolRounds = 10

// ErrTooManyToolRounds ends a turn whose model keeps requesting tools past
// the configured bound.
var ErrTooManyToolRounds = errors.New("too many tool rounds")

// Result is the outcome of one completed turn.
type Result struct {
	// Text is the model's final answer.
	Text string
	// ToolsUsed lists the name of every executed call, in order.
	ToolsUsed []string
	// NewMessages are the messages produced by the turn, ending with the
	// final assistant message. Callers persist them after the user message.
	NewMessages []schema.Message
	// Usage sums token usage over every completion of the turn.
	Usage schema.Usage
}

// loopRunner executes the LLM ↔ tool iteration loop.
type loopRunner struct {
	provider  schema.LLMProvider
	tools     schema.ToolExecutor
	maxRounds int
}

// run drives one turn. history is not modified. A provider error ends the
// turn; a tool error is reported back to the model as an error result.
func (r *loopRunner) run(
	ctx context.Context,
	history []schema.Message,
	systemPrompt string,
	onProgress func(string),
) (Result, error) {
	conversation := schema.NewMessages(history...)
	definitions := r.tools.Tools()

	var res Result
	for round := 0; ; round++ {
		resp, err := r.provider.Complete(ctx, conversation.Messages, definitions, systemPrompt)
		if err != nil {
			slog.Error("LLM error", "provider", r.provider.Name(), "round", round, "err", err)
			return res, fmt.Errorf("llm completion: %w", err)
		}
		res.Usage.InputTokens += resp.Usage.InputTokens
		res.Usage.OutputTokens += resp.Usage.OutputTokens

		if !resp.HasToolCalls() {
			final := schema.NewAssistantMessage(resp.Text, nil)
			res.Text = resp.Text
			res.NewMessages = append(res.NewMessages, final)
			return res, nil
		}

		if round >= r.maxRounds {
			slog.Warn("Tool round limit reached", "rounds", round, "pending", len(resp.ToolCalls))
			return res, fmt.Errorf("%w: limit is %d", ErrTooManyToolRounds, r.maxRounds)
		}

		if onProgress != nil {
			if resp.Text != "" {
				onProgress(resp.Text)
			}
			onProgress(llmutils.ToolHint(resp.ToolCalls))
		}

		results := make([]schema.ToolResult, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			res.ToolsUsed = append(res.ToolsUsed, tc.Name)
			results = append(results, r.execute(ctx, tc))
		}

		assistant := schema.NewAssistantMessage(resp.Text, resp.ToolCalls)
		toolMsg := schema.NewToolMessage(results)
		conversation.Add(assistant, toolMsg)
		res.NewMessages = append(res.NewMessages, assistant, toolMsg)
	}
}

// execute runs one call. Failures become is_error results.
func (r *loopRunner) execute(ctx context.Context, tc schema.ToolCall) schema.ToolResult {
	argsJSON, _ := json.Marshal(tc.Arguments)
	slog.Info("Tool call", "name", tc.Name, "args", llmutils.Truncate(string(argsJSON), 200))

	out, err := r.tools.ExecuteTool(ctx, tc)
	if err != nil {
		slog.Warn("Tool failed", "name", tc.Name, "err", err)
		return schema.ToolResult{ToolUseID: tc.ID, Content: "Error: " + err.Error(), IsError: true}
	}
	return schema.ToolResult{ToolUseID: tc.ID, Content: out}
}
