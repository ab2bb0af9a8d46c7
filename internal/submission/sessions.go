package submission

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reimburse/internal/cache"
	"reimburse/internal/draft"
)

// ErrSessionNotFound is returned for unknown or expired form sessions.
var ErrSessionNotFound = errors.New("form session not found")

// Session is one open claim form: its draft attachments and its workflow.
type Session struct {
	*Workflow
	ID       string
	OpenedAt time.Time
}

// Sessions tracks open forms. Idle sessions expire after the configured TTL
// and their drafts are discarded.
type Sessions struct {
	claims Claims
	opts   []Option
	cache  *cache.LRUCache[*Session]
	logger *slog.Logger

	pending sync.WaitGroup
}

func NewSessions(claims Claims, maxOpen int, ttl time.Duration, logger *slog.Logger, opts ...Option) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sessions{
		claims: claims,
		cache:  cache.NewLRUCache[*Session](maxOpen, ttl),
		logger: logger,
	}
	s.opts = append([]Option{WithLogger(logger), withPending(&s.pending)}, opts...)
	s.cache.OnEvict(func(id string, sess *Session) {
		sess.Draft().Discard()
		s.logger.Debug("Form session closed", "session_id", id)
	})
	return s
}

// Open starts a new form session with an empty draft.
func (s *Sessions) Open() *Session {
	sess := &Session{
		Workflow: NewWorkflow(s.claims, draft.New(), s.opts...),
		ID:       uuid.NewString(),
		OpenedAt: time.Now().UTC(),
	}
	s.cache.Set(sess.ID, sess)
	s.logger.Debug("Form session opened", "session_id", sess.ID)
	return sess
}

// Get returns a live session.
func (s *Sessions) Get(id string) (*Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close dismisses the form and discards its draft.
func (s *Sessions) Close(id string) error {
	if !s.cache.Delete(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	return s.cache.Size()
}

// Wait blocks until the notifications of every submitted form have been
// sent, including forms whose session is already closed.
func (s *Sessions) Wait() {
	s.pending.Wait()
}

// Cleaner exposes the session cache to a cache.Janitor.
func (s *Sessions) Cleaner() cache.Cleaner {
	return s.cache
}
