// Package session provides the in-memory conversation session store.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/ashureev/freetalk/internal/domain"
	"github.com/google/uuid"
)

const (
	// DefaultMaxHistory is the number of turns kept per session.
	DefaultMaxHistory = 30
	// DefaultTimeout is the idle period after which a session expires.
	DefaultTimeout = 120 * time.Minute
)

// Options configures a Store.
type Options struct {
	MaxHistory int
	Timeout    time.Duration
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Store owns all session state. Every operation runs under a single
// store-wide lock and performs no I/O while holding it.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*domain.Session
	maxHistory int
	timeout    time.Duration
	now        func() time.Time
}

// NewStore creates an empty session store.
func NewStore(opts Options) *Store {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions:   make(map[string]*domain.Session),
		maxHistory: opts.MaxHistory,
		timeout:    opts.Timeout,
		now:        opts.Now,
	}
}

// Create allocates a new session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &domain.Session{
		ID:         id,
		Mode:       domain.ModeFreeTalk,
		History:    []domain.Turn{},
		CreatedAt:  now,
		LastActive: now,
	}
	return id
}

// Get returns a snapshot of the session. An expired session is deleted and
// reported as absent. A successful lookup refreshes the session's activity
// timestamp.
func (s *Store) Get(id string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, false
	}

	now := s.now()
	if sess.Expired(now, s.timeout) {
		delete(s.sessions, id)
		return domain.Session{}, false
	}
	sess.LastActive = now

	snapshot := *sess
	snapshot.History = slices.Clone(sess.History)
	return snapshot, true
}

// AddMessage appends a turn to the session history, dropping the oldest
// turns once the history exceeds the configured maximum. It returns the
// stored turn, or false if the session does not exist.
func (s *Store) AddMessage(id string, role domain.Role, content string) (domain.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Turn{}, false
	}

	now := s.now()
	turn := domain.Turn{
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	sess.History = append(sess.History, turn)
	if len(sess.History) > s.maxHistory {
		sess.History = slices.Clone(sess.RecentTurns(s.maxHistory))
	}
	sess.LastActive = now
	return turn, true
}

// History returns the role/content pairs of the session in stored order,
// or an empty slice if the session does not exist.
func (s *Store) History(id string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return []domain.Message{}
	}
	return sess.Messages()
}

// MarkGreeted sets the greeted flag on the session. It returns false if the
// session does not exist.
func (s *Store) MarkGreeted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	sess.Metadata.Greeted = true
	return true
}

// Len returns the number of sessions held, including expired sessions that
// have not been looked up since they expired.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes every expired session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.Expired(now, s.timeout) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
