// Package session keeps the sale-entry sessions of the running process.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/fitstock/internal/domain/sale"
)

// DefaultIdleTimeout is used when the store is created without a timeout.
const DefaultIdleTimeout = 30 * time.Minute

// ErrNotFound is returned for unknown or evicted session IDs.
var ErrNotFound = errors.New("sale session not found")

// Store maps session IDs to sale sessions and evicts idle ones.
type Store struct {
	sales *sale.Service
	idle  time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*sale.Session
}

// NewStore creates a Store. A zero idle uses DefaultIdleTimeout and a nil
// now uses time.Now.
func NewStore(sales *sale.Service, idle time.Duration, now func() time.Time) *Store {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		sales:    sales,
		idle:     idle,
		now:      now,
		sessions: make(map[string]*sale.Session),
	}
}

// Create starts a new session and returns its ID.
func (s *Store) Create() (string, *sale.Session) {
	id := uuid.New().String()
	sess := s.sales.NewSession()

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return id, sess
}

// Get returns the session with the given ID.
func (s *Store) Get(id string) (*sale.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete discards a session. Sessions with a submission in flight are kept.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if sess.Submitting() {
		return sale.ErrSubmissionInProgress
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweep removes sessions idle for at least the timeout and returns how many
// were removed.
func (s *Store) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive()) >= s.idle && !sess.Submitting() {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every half timeout until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	lg := zctx.From(ctx)
	ticker := time.NewTicker(s.idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(s.now()); n > 0 {
				lg.Debug("Evicted idle sale sessions", zap.Int("count", n))
			}
		}
	}
}
