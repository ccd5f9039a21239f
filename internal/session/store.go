package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/recipebox/recipebox/internal/schema"
)

const (
	DefaultTTL      = 12 * time.Hour
	DefaultCapacity = 200
)

// Archiver receives sessions as they leave the store. It is called without
// the store lock held.
type Archiver interface {
	Archive(s *Session, reason Reason) error
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the idle lifetime of a session.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCapacity sets the maximum number of sessions kept.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithArchiver hands removed sessions to a.
func WithArchiver(a Archiver) Option {
	return func(s *Store) { s.archiver = a }
}

// Store is a bounded, TTL-limited map of conversation id to Session. All
// access goes through one mutex; maintenance is a linear scan, which is
// cheap at the configured capacity.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl      time.Duration
	capacity int
	now      func() time.Time
	archiver Archiver
}

// NewStore returns an empty store with DefaultTTL and DefaultCapacity unless
// overridden.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type departure struct {
	session *Session
	reason  Reason
}

// AppendUserMessage appends msg to the conversation, creating it if needed,
// and returns a copy of the full history plus whether the session is new.
// Expired sessions are dropped first; creating a session evicts the least
// recently accessed ones so the store stays within capacity.
func (s *Store) AppendUserMessage(id string, msg schema.Message) ([]schema.Message, bool) {
	s.mu.Lock()
	now := s.now()
	gone := s.expireLocked(now)

	sess, ok := s.sessions[id]
	if !ok {
		gone = append(gone, s.evictLocked(s.capacity-1)...)
		sess = &Session{ID: id, Messages: schema.NewMessages(), CreatedAt: now}
		s.sessions[id] = sess
	}
	sess.Messages.Add(msg)
	sess.LastAccess = now
	history := sess.snapshot()
	s.mu.Unlock()

	s.archive(gone)
	return history, !ok
}

// AppendMessages appends msgs to an existing conversation. It reports false,
// and does nothing, when the session is gone (for example evicted mid-turn).
func (s *Store) AppendMessages(id string, msgs ...schema.Message) bool {
	s.mu.Lock()
	now := s.now()
	gone := s.expireLocked(now)

	sess, ok := s.sessions[id]
	if ok {
		sess.Messages.Add(msgs...)
		sess.LastAccess = now
	}
	s.mu.Unlock()

	s.archive(gone)
	if !ok {
		slog.Debug("Session gone, dropping messages", "conversation", id, "messages", len(msgs))
	}
	return ok
}

// Remove deletes the conversation. It reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.archive([]departure{{session: sess, reason: ReasonReset}})
	}
	return ok
}

// Get returns a copy of the history without touching the access time.
func (s *Store) Get(id string) ([]schema.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.snapshot(), true
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep runs maintenance without writing and returns how many sessions were
// dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	gone := s.expireLocked(s.now())
	gone = append(gone, s.evictLocked(s.capacity)...)
	s.mu.Unlock()

	s.archive(gone)
	return len(gone)
}

// expireLocked drops sessions idle for longer than the TTL.
func (s *Store) expireLocked(now time.Time) []departure {
	var gone []departure
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccess) > s.ttl {
			delete(s.sessions, id)
			gone = append(gone, departure{session: sess, reason: ReasonExpired})
		}
	}
	return gone
}

// evictLocked removes least recently accessed sessions until at most limit
// remain. Ties on access time are broken by id.
func (s *Store) evictLocked(limit int) []departure {
	excess := len(s.sessions) - limit
	if excess <= 0 {
		return nil
	}

	byAge := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		byAge = append(byAge, sess)
	}
	sort.Slice(byAge, func(i, j int) bool {
		if !byAge[i].LastAccess.Equal(byAge[j].LastAccess) {
			return byAge[i].LastAccess.Before(byAge[j].LastAccess)
		}
		return byAge[i].ID < byAge[j].ID
	})

	gone := make([]departure, 0, excess)
	for _, sess := range byAge[:excess] {
		delete(s.sessions, sess.ID)
		gone = append(gone, departure{session: sess, reason: ReasonEvicted})
	}
	return gone
}

func (s *Store) archive(gone []departure) {
	for _, d := range gone {
		slog.Debug("Session removed", "conversation", d.session.ID, "reason", d.reason)
		if s.archiver == nil {
			continue
		}
		if err := s.archiver.Archive(d.session, d.reason); err != nil {
			slog.Warn("Session archive failed", "conversation", d.session.ID, "err", err)
		}
	}
}
