// Package session holds per-conversation message histories in memory.
//
// Sessions expire after a fixed idle TTL and the store is bounded: when a new
// conversation would exceed capacity, the least recently accessed sessions are
// evicted first. Removed sessions can optionally be written to disk as JSONL
// transcripts by an Archiver.
package session

import (
	"time"

	"github.com/recipebox/recipebox/internal/schema"
)

// Session is one conversation's history.
type Session struct {
	ID         string
	Messages   schema.Messages
	CreatedAt  time.Time
	LastAccess time.Time
}

// Reason says why a session left the store.
type Reason string

const (
	ReasonReset   Reason = "reset"
	ReasonExpired Reason = "expired"
	ReasonEvicted Reason = "evicted"
)

// snapshot returns an independent copy of the history.
func (s *Session) snapshot() []schema.Message {
	return s.Messages.Clone().Messages
}
