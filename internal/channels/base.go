// Package channels connects chat platforms to the chat service.
package channels

import (
	"context"
	"strings"

	"github.com/recipebox/recipebox/internal/chat"
	"github.com/recipebox/recipebox/internal/schema"
)

// Chat is the part of chat.Service a channel drives.
type Chat interface {
	Send(ctx context.Context, conversationID string, blocks []schema.ContentBlock, onProgress func(string)) (chat.Reply, error)
}

// allowList holds permitted sender ids. Empty allows everyone.
type allowList []string

// IsAllowed checks whether senderID is on the list.
// senderID may be "id|username" (Telegram) or a plain string.
func (a allowList) IsAllowed(senderID string) bool {
	if len(a) == 0 {
		return true
	}
	for _, part := range strings.Split(senderID, "|") {
		if part == "" {
			continue
		}
		for _, allowed := range a {
			if allowed == part || allowed == senderID {
				return true
			}
		}
	}
	return false
}

// splitMessage splits content into chunks of at most maxLen bytes,
// preferring newline breaks, then space breaks, then a hard cut.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t\n")
	}
	return chunks
}
