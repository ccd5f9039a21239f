package schema

import "fmt"

// Messages is the ordered list of messages exchanged with the LLM.
// It owns typed append methods so callers never build messages by hand.
type Messages struct {
	Messages []Message
}

// NewMessages returns a Messages initialised with the given messages.
// Called with no arguments it returns an empty Messages ready for use.
func NewMessages(msgs ...Message) Messages {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return Messages{Messages: out}
}

// Add appends raw messages.
func (mh *Messages) Add(msgs ...Message) {
	mh.Messages = append(mh.Messages, msgs...)
}

// AddUser appends a user message built from content blocks.
func (mh *Messages) AddUser(blocks ...ContentBlock) {
	mh.Messages = append(mh.Messages, NewUserMessage(blocks...))
}

// AddAssistant appends an assistant message with optional text and tool calls.
func (mh *Messages) AddAssistant(text string, calls []ToolCall) {
	mh.Messages = append(mh.Messages, NewAssistantMessage(text, calls))
}

// AddToolResults appends a tool message.
func (mh *Messages) AddToolResults(results []ToolResult) {
	mh.Messages = append(mh.Messages, NewToolMessage(results))
}

// Len returns the number of messages.
func (mh *Messages) Len() int { return len(mh.Messages) }

// Clone returns a copy of mh with an independent backing slice.
func (mh *Messages) Clone() Messages {
	cloned := make([]Message, len(mh.Messages))
	copy(cloned, mh.Messages)
	return Messages{Messages: cloned}
}

// CheckToolPairing verifies that every assistant message carrying tool calls
// is immediately followed by exactly one tool message with one result per
// call, matched by id, without duplicates or omissions.
func CheckToolPairing(msgs []Message) error {
	for i, m := range msgs {
		if m.Role != RoleAssistant || len(m.ToolCalls) == 0 {
			continue
		}
		if i+1 >= len(msgs) || msgs[i+1].Role != RoleTool {
			return fmt.Errorf("message %d: assistant tool calls not followed by a tool message", i)
		}
		results := msgs[i+1].Results
		if len(results) != len(m.ToolCalls) {
			return fmt.Errorf("message %d: %d tool calls but %d results", i, len(m.ToolCalls), len(results))
		}
		pending := make(map[string]bool, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			pending[tc.ID] = true
		}
		for _, r := range results {
			if !pending[r.ToolUseID] {
				return fmt.Errorf("message %d: unexpected or duplicate result for %q", i+1, r.ToolUseID)
			}
			delete(pending, r.ToolUseID)
		}
	}
	return nil
}
