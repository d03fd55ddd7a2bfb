// Package session keeps one ledger per browser session.
package session

import (
	"log/slog"
	"sync"
	"time"

	"contahogar/internal/cache"
	"contahogar/internal/core"
	applog "contahogar/internal/log"

	"github.com/google/uuid"
)

// Session owns one household ledger. Updates and reads are serialized.
type Session struct {
	ID string

	mu     sync.Mutex
	ledger *core.Ledger
}

// Ledger returns a snapshot safe to read without holding the session.
func (s *Session) Ledger() *core.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone()
}

// Update applies one charge change and returns the new snapshot.
func (s *Session) Update(name string, field core.Field, value int64) (*core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := core.UpdateCharge(s.ledger, name, field, value)
	if err != nil {
		return nil, err
	}
	s.ledger = next
	return next.Clone(), nil
}

// Store holds sessions in a bounded LRU with sliding expiry.
type Store struct {
	roster   core.Roster
	sessions *cache.LRUCache[*Session]
}

func NewStore(roster core.Roster, maxSessions int, ttl time.Duration, opts ...cache.Option) *Store {
	opts = append([]cache.Option{cache.WithSlidingExpiry()}, opts...)
	return &Store{
		roster:   roster,
		sessions: cache.NewLRUCache[*Session](maxSessions, ttl, opts...),
	}
}

// Get returns a live session.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return s.sessions.Get(id)
}

// Create starts a session with a fresh ledger built from the roster.
func (s *Store) Create() *Session {
	sess := &Session{
		ID:     uuid.NewString(),
		ledger: core.NewLedger(s.roster),
	}
	s.sessions.Set(sess.ID, sess)
	slog.Debug("Session created", applog.FieldComponent, applog.ComponentSession, applog.FieldSessionID, sess.ID, "active_sessions", s.sessions.Size())
	return sess
}

// GetOrCreate returns the session for id, or a new one when id is unknown
// or expired. created reports which happened.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Roster returns the roster every new ledger starts from.
func (s *Store) Roster() core.Roster {
	return s.roster
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	return s.sessions.Size()
}

// Cache exposes the backing cache for registration with a cache.Manager.
func (s *Store) Cache() cache.Cleaner {
	return s.sessions
}
