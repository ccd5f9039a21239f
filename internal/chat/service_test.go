package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/recipebox/recipebox/internal/agent"
	"github.com/recipebox/recipebox/internal/schema"
	"github.com/recipebox/recipebox/internal/session"
)

// stubAgent echoes the last user message. When gate is set, every turn
// signals entered and then waits on gate.
type stubAgent struct {
	mu        sync.Mutex
	histories [][]schema.Message
	entered   chan string
	gate      chan struct{}
	result    *agent.Result
	err       error
}

func (a *stubAgent) Chat(ctx context.Context, history []schema.Message, _ func(string)) (agent.Result, error) {
	a.mu.Lock()
	a.histories = append(a.histories, history)
	a.mu.Unlock()

	last := history[len(history)-1].PlainText()
	if a.entered != nil {
		a.entered <- last
	}
	if a.gate != nil {
		<-a.gate
	}
	if a.result != nil || a.err != nil {
		var res agent.Result
		if a.result != nil {
			res = *a.result
		}
		return res, a.err
	}
	return agent.Result{
		Text:        "echo: " + last,
		NewMessages: []schema.Message{schema.NewAssistantMessage("echo: "+last, nil)},
	}, nil
}

func (a *stubAgent) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.histories)
}

func TestSend_NewConversation(t *testing.T) {
	store := session.NewStore()
	svc := NewService(&stubAgent{}, store)

	reply, err := svc.SendText(context.Background(), "", "hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply.ConversationID == "" || !reply.NewConversation {
		t.Errorf("expected a generated id for a new conversation: %+v", reply)
	}
	if reply.Text != "echo: hello" || reply.ToolsUsed == nil {
		t.Errorf("unexpected reply: %+v", reply)
	}

	history, ok := svc.History(reply.ConversationID)
	if !ok || len(history) != 2 {
		t.Fatalf("expected user + assistant persisted, got %d", len(history))
	}

	reply2, err := svc.SendText(context.Background(), reply.ConversationID, "again", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply2.NewConversation {
		t.Error("second turn is not a new conversation")
	}
	if history, _ := svc.History(reply.ConversationID); len(history) != 4 {
		t.Errorf("expected 4 messages after two turns, got %d", len(history))
	}
}

func TestSend_EmptyMessage(t *testing.T) {
	svc := NewService(&stubAgent{}, session.NewStore())

	_, err := svc.Send(context.Background(), "c1", []schema.ContentBlock{schema.TextBlock("  "), schema.ImageBlock("image/png", "")}, nil)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSend_ImageOnly(t *testing.T) {
	a := &stubAgent{result: &agent.Result{Text: "Nice soup."}}
	svc := NewService(a, session.NewStore())

	if _, err := svc.Send(context.Background(), "c1", []schema.ContentBlock{schema.ImageBlock("image/jpeg", "AAAA")}, nil); err != nil {
		t.Fatal(err)
	}
	got := a.histories[0][0]
	if len(got.Content) != 1 || got.Content[0].Type != schema.BlockImage {
		t.Errorf("image not forwarded: %+v", got)
	}
}

func TestSend_EmptyReplyGetsPlaceholder(t *testing.T) {
	empty := &agent.Result{NewMessages: []schema.Message{schema.NewAssistantMessage("", nil)}}
	svc := NewService(&stubAgent{result: empty}, session.NewStore())

	reply, err := svc.SendText(context.Background(), "c1", "hi", nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != noResponseText {
		t.Errorf("Text = %q", reply.Text)
	}

	history, _ := svc.History("c1")
	if len(history) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(history))
	}
	saved := history[1]
	if saved.Role != schema.RoleAssistant || saved.Text == nil || *saved.Text != noResponseText {
		t.Errorf("stored reply should carry the placeholder, got %+v", saved)
	}
	if empty.NewMessages[0].Text != nil {
		t.Error("agent result should not be modified")
	}
}

func TestSend_FailedTurnKeepsCompletedRounds(t *testing.T) {
	partial := &agent.Result{
		ToolsUsed: []string{"delete_recipe"},
		NewMessages: []schema.Message{
			schema.NewAssistantMessage("", []schema.ToolCall{{ID: "1", Name: "delete_recipe"}}),
			schema.NewToolMessage([]schema.ToolResult{{ToolUseID: "1", Content: "deleted"}}),
		},
	}
	svc := NewService(&stubAgent{result: partial, err: agent.ErrTooManyToolRounds}, session.NewStore())

	reply, err := svc.SendText(context.Background(), "c1", "delete soup", nil)
	if !errors.Is(err, agent.ErrTooManyToolRounds) {
		t.Fatalf("expected turn error, got %v", err)
	}
	if reply.ConversationID != "c1" {
		t.Errorf("reply should still name the conversation: %+v", reply)
	}
	history, _ := svc.History("c1")
	if len(history) != 3 {
		t.Fatalf("expected user + completed round persisted, got %d", len(history))
	}
	if err := schema.CheckToolPairing(history); err != nil {
		t.Errorf("pairing: %v", err)
	}
}

func TestSend_Commands(t *testing.T) {
	a := &stubAgent{}
	svc := NewService(a, session.NewStore())

	if _, err := svc.SendText(context.Background(), "c1", "hello", nil); err != nil {
		t.Fatal(err)
	}

	reply, err := svc.SendText(context.Background(), "c1", "/help", nil)
	if err != nil || reply.Text != helpText {
		t.Errorf("/help: %+v %v", reply, err)
	}

	reply, err = svc.SendText(context.Background(), "c1", " /NEW ", nil)
	if err != nil || reply.Text != newSessionText || !reply.NewConversation {
		t.Errorf("/new: %+v %v", reply, err)
	}
	if _, ok := svc.History("c1"); ok {
		t.Error("/new should drop the conversation")
	}
	if a.calls() != 1 {
		t.Errorf("commands must not reach the agent, calls = %d", a.calls())
	}
}

func TestSend_SameConversationIsSerialized(t *testing.T) {
	a := &stubAgent{entered: make(chan string, 2), gate: make(chan struct{})}
	svc := NewService(a, session.NewStore())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.SendText(context.Background(), "c1", "first", nil)
	}()
	if got := <-a.entered; got != "first" {
		t.Fatalf("entered %q", got)
	}

	go func() {
		defer wg.Done()
		_, _ = svc.SendText(context.Background(), "c1", "second", nil)
	}()
	select {
	case got := <-a.entered:
		t.Fatalf("second turn %q started before the first finished", got)
	case <-time.After(100 * time.Millisecond):
	}

	a.gate <- struct{}{}
	if got := <-a.entered; got != "second" {
		t.Fatalf("entered %q", got)
	}
	a.gate <- struct{}{}
	wg.Wait()

	// The second turn saw the first turn's reply.
	if n := len(a.histories[1]); n != 3 {
		t.Errorf("second turn history = %d messages, want 3", n)
	}
	if svc.turns.size() != 0 {
		t.Errorf("turn locks leaked: %d", svc.turns.size())
	}
}

func TestSend_DifferentConversationsRunConcurrently(t *testing.T) {
	a := &stubAgent{entered: make(chan string, 2), gate: make(chan struct{})}
	svc := NewService(a, session.NewStore())

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.SendText(context.Background(), id, id, nil)
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case <-a.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("unrelated conversations blocked each other")
		}
	}
	close(a.gate)
	wg.Wait()
}

func TestReset(t *testing.T) {
	svc := NewService(&stubAgent{}, session.NewStore())
	if svc.Reset("missing") {
		t.Error("resetting an unknown conversation reports false")
	}
	if _, err := svc.SendText(context.Background(), "c1", "hi", nil); err != nil {
		t.Fatal(err)
	}
	if !svc.Reset("c1") {
		t.Error("expected reset")
	}
}
