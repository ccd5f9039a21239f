package schema

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Content block types accepted in user messages.
const (
	BlockText  = "text"
	BlockImage = "image"
)

// ContentBlock is a single block in a user message: text or a base64 image.
type ContentBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"` // image only, e.g. "image/jpeg"
	Data      string `json:"data,omitempty"`       // image only, base64 without data: prefix
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ImageBlock returns a base64 image content block.
func ImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Type: BlockImage, MediaType: mediaType, Data: data}
}

// ToolCall is one model-issued request to invoke a named tool.
// ID is generated by the provider and must be echoed back unchanged.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments Object `json:"arguments"`
}

// ToolResult carries the output of one ToolCall back to the model.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message is one turn in a conversation.
//
// Which fields are set depends on Role:
//   - user:      Content
//   - assistant: Text (optional) and ToolCalls (optional)
//   - tool:      Results, one per call of the preceding assistant message
type Message struct {
	Role      Role           `json:"role"`
	Content   []ContentBlock `json:"content,omitempty"`
	Text      *string        `json:"text,omitempty"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	Results   []ToolResult   `json:"results,omitempty"`
}

// NewUserMessage builds a user message from content blocks.
func NewUserMessage(blocks ...ContentBlock) Message {
	content := make([]ContentBlock, len(blocks))
	copy(content, blocks)
	return Message{Role: RoleUser, Content: content}
}

// NewUserText builds a plain-text user message.
func NewUserText(text string) Message {
	return NewUserMessage(TextBlock(text))
}

// NewAssistantMessage builds an assistant message. An empty text is stored as nil.
func NewAssistantMessage(text string, calls []ToolCall) Message {
	msg := Message{Role: RoleAssistant, ToolCalls: calls}
	if text != "" {
		t := text
		msg.Text = &t
	}
	return msg
}

// NewToolMessage builds a tool message carrying results.
func NewToolMessage(results []ToolResult) Message {
	return Message{Role: RoleTool, Results: results}
}

// PlainText returns the concatenated text of a user message or the text of
// an assistant message.
func (m Message) PlainText() string {
	switch m.Role {
	case RoleAssistant:
		if m.Text != nil {
			return *m.Text
		}
	case RoleUser:
		var out string
		for _, b := range m.Content {
			if b.Type != BlockText {
				continue
			}
			if out != "" {
				out += "\n"
			}
			out += b.Text
		}
		return out
	}
	return ""
}
