package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds sessions in memory, keyed by an opaque ID.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	defaultHosts []string
	ttl          time.Duration
	now          func() time.Time
}

// NewStore creates a store. New sessions start with defaultHosts; sessions
// idle for longer than ttl are dropped (ttl <= 0 keeps them forever).
func NewStore(defaultHosts []string, ttl time.Duration) *Store {
	return &Store{
		sessions:     make(map[string]*Session),
		defaultHosts: append([]string(nil), defaultHosts...),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Get returns the session for id, creating a fresh one when id is unknown or
// expired. The returned ID may differ from the one passed in.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.LastSeen = now
		return sess.Snapshot()
	}
	sess := newSession(uuid.NewString(), s.defaultHosts, now)
	s.sessions[sess.ID] = sess
	return sess.Snapshot()
}

// Lookup returns the session for id without creating one.
func (s *Store) Lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	sess, ok := s.sessions[id]
	if !ok || id == "" {
		return nil, false
	}
	sess.LastSeen = now
	return sess.Snapshot(), true
}

// Update applies fn to the live session under the store lock. Unknown IDs
// get a fresh session, as in Get.
func (s *Store) Update(id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(uuid.NewString(), s.defaultHosts, now)
		s.sessions[sess.ID] = sess
	}
	sess.LastSeen = now
	if err := fn(sess); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) pruneLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
