// Package chat turns user messages into agent turns: it looks up the
// conversation, runs the agent over its history and persists what the turn
// produced.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/recipebox/recipebox/internal/agent"
	"github.com/recipebox/recipebox/internal/schema"
	"github.com/recipebox/recipebox/internal/session"
)

// ErrEmptyMessage is returned for a message with no text and no images.
var ErrEmptyMessage = errors.New("message is empty")

const (
	noResponseText = "I've completed processing but have no response to give."
	newSessionText = "New conversation started."
	helpText       = "recipebox commands:\n/new — Start a new conversation\n/help — Show available commands"
)

// Agent runs one turn. *agent.Agent implements it.
type Agent interface {
	Chat(ctx context.Context, history []schema.Message, onProgress func(string)) (agent.Result, error)
}

// Reply is what the caller shows the user.
type Reply struct {
	ConversationID  string   `json:"conversation_id"`
	Text            string   `json:"reply"`
	ToolsUsed       []string `json:"tools_used"`
	NewConversation bool     `json:"new_conversation"`
}

// Service is shared by every chat surface (HTTP, websocket, Telegram, CLI).
type Service struct {
	agent Agent
	store *session.Store
	turns *keyedMutex
}

// NewService wires a Service.
func NewService(a Agent, store *session.Store) *Service {
	return &Service{agent: a, store: store, turns: newKeyedMutex()}
}

// Send runs one turn for conversationID. An empty id starts a new
// conversation with a generated id. Turns for the same conversation run one
// at a time; different conversations run concurrently.
func (s *Service) Send(
	ctx context.Context,
	conversationID string,
	blocks []schema.ContentBlock,
	onProgress func(string),
) (Reply, error) {
	blocks = nonEmptyBlocks(blocks)
	if len(blocks) == 0 {
		return Reply{}, ErrEmptyMessage
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if reply, ok := s.handleCommand(conversationID, blocks); ok {
		return reply, nil
	}

	unlock := s.turns.Lock(conversationID)
	defer unlock()

	history, isNew := s.store.AppendUserMessage(conversationID, schema.NewUserMessage(blocks...))
	slog.Info("Processing message", "conversation", conversationID, "new", isNew, "history", len(history))

	res, err := s.agent.Chat(ctx, history, onProgress)
	text := res.Text
	if err == nil && text == "" {
		text = noResponseText
		if n := len(res.NewMessages); n > 0 && len(res.NewMessages[n-1].ToolCalls) == 0 {
			res.NewMessages = append(res.NewMessages[:n-1:n-1], schema.NewAssistantMessage(text, nil))
		}
	}
	if len(res.NewMessages) > 0 {
		// Completed tool rounds are kept even when the turn fails later.
		s.store.AppendMessages(conversationID, res.NewMessages...)
	}
	if err != nil {
		slog.Error("Turn failed", "conversation", conversationID, "err", err)
		return Reply{ConversationID: conversationID, NewConversation: isNew, ToolsUsed: res.ToolsUsed}, err
	}

	slog.Info("Response", "conversation", conversationID, "length", len(text), "tools", res.ToolsUsed)

	return Reply{
		ConversationID:  conversationID,
		Text:            text,
		ToolsUsed:       nonNil(res.ToolsUsed),
		NewConversation: isNew,
	}, nil
}

// SendText is Send with a single text block.
func (s *Service) SendText(ctx context.Context, conversationID, text string, onProgress func(string)) (Reply, error) {
	return s.Send(ctx, conversationID, []schema.ContentBlock{schema.TextBlock(text)}, onProgress)
}

// Reset forgets the conversation. It reports whether it existed.
func (s *Service) Reset(conversationID string) bool {
	unlock := s.turns.Lock(conversationID)
	defer unlock()
	return s.store.Remove(conversationID)
}

// History returns a copy of the conversation's messages.
func (s *Service) History(conversationID string) ([]schema.Message, bool) {
	return s.store.Get(conversationID)
}

// handleCommand answers slash commands without running the agent.
func (s *Service) handleCommand(conversationID string, blocks []schema.ContentBlock) (Reply, bool) {
	if len(blocks) != 1 || blocks[0].Type != schema.BlockText {
		return Reply{}, false
	}
	cmd := strings.ToLower(strings.TrimSpace(blocks[0].Text))

	switch cmd {
	case "/new":
		s.Reset(conversationID)
		slog.Info("Conversation reset", "conversation", conversationID)
		return Reply{ConversationID: conversationID, Text: newSessionText, ToolsUsed: []string{}, NewConversation: true}, true
	case "/help":
		return Reply{ConversationID: conversationID, Text: helpText, ToolsUsed: []string{}}, true
	}
	return Reply{}, false
}

func nonEmptyBlocks(blocks []schema.ContentBlock) []schema.ContentBlock {
	out := make([]schema.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case schema.BlockText:
			if strings.TrimSpace(b.Text) != "" {
				out = append(out, b)
			}
		case schema.BlockImage:
			if b.Data != "" {
				out = append(out, b)
			}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
