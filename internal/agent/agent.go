// Package agent runs conversational turns: it alternates LLM completions with
// tool executions until the model answers in plain text.
package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/recipebox/recipebox/internal/schema"
)

// Settings tune the loop.
type Settings struct {
	SystemPrompt  string
	MaxToolRounds int
}

// Agent serves many concurrent turns over one provider and one tool executor.
// Each turn runs its steps sequentially.
type Agent struct {
	loopRunner
	prompt *PromptBuilder

	startMu sync.Mutex
	started bool
}

// New returns an Agent. tools are started lazily on the first turn unless
// Start is called first.
func New(provider schema.LLMProvider, tools schema.ToolExecutor, settings Settings) *Agent {
	rounds := settings.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}
	return &Agent{
		loopRunner: loopRunner{provider: provider, tools: tools, maxRounds: rounds},
		prompt:     NewPromptBuilder(settings.SystemPrompt),
	}
}

// Start brings up every tool server.
func (a *Agent) Start(ctx context.Context) error {
	a.startMu.Lock()
	defer a.startMu.Unlock()
	a.started = true
	return a.tools.Start(ctx)
}

// Stop tears down every tool server.
func (a *Agent) Stop() {
	a.startMu.Lock()
	defer a.startMu.Unlock()
	a.started = false
	a.tools.Stop()
}

// Tools returns the merged catalog presented to the model.
func (a *Agent) Tools() []schema.ToolDefinition {
	return a.tools.Tools()
}

// Chat runs one turn over history, which must end with the new user message.
// onProgress, if non-nil, receives interim assistant text and tool hints.
func (a *Agent) Chat(ctx context.Context, history []schema.Message, onProgress func(string)) (Result, error) {
	a.ensureStarted(ctx)

	res, err := a.run(ctx, history, a.prompt.Build(), onProgress)
	if err != nil {
		return res, err
	}
	slog.Info("Turn complete",
		"tools", len(res.ToolsUsed),
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
	)
	return res, nil
}

// ensureStarted starts the tool servers once. Failing servers are logged by
// the executor and left out of the catalog.
func (a *Agent) ensureStarted(ctx context.Context) {
	a.startMu.Lock()
	defer a.startMu.Unlock()
	if a.started {
		return
	}
	a.started = true
	if err := a.tools.Start(ctx); err != nil {
		slog.Warn("Some tool servers failed to start", "err", err)
	}
}
