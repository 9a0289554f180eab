package form

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bike-predict/internal/utils"
)

// Factory builds the controller for a new session.
type Factory func(sessionID string) *Controller

// Store keeps one controller per browser session and drops idle ones.
type Store struct {
	ttl     time.Duration
	factory Factory
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewStore creates a session store. A zero ttl keeps sessions forever.
func NewStore(ttl time.Duration, factory Factory) *Store {
	return &Store{
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		sessions: make(map[string]*Controller),
	}
}

// Get returns the live controller for id.
func (s *Store) Get(id string) (*Controller, bool) {
	if id == "" {
		return nil, false
	}

	s.mu.RLock()
	c, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.expired(c) {
		return nil, false
	}
	c.touch()
	return c, true
}

// GetOrCreate returns the controller for id, or starts a new session that
// loads its mappings before it is returned. created reports which happened.
func (s *Store) GetOrCreate(ctx context.Context, id string) (c *Controller, created bool) {
	if c, ok := s.Get(id); ok {
		return c, false
	}

	c = s.factory(uuid.NewString())
	// A failed load is already reflected in the controller's error state.
	_ = c.LoadMappings(ctx)

	s.mu.Lock()
	s.sessions[c.ID()] = c
	s.mu.Unlock()

	utils.GetLogger().Debug("Session started", zap.String("session", c.ID()))
	return c, true
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes idle sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.sessions {
		if s.expired(c) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				utils.GetLogger().Info("Expired idle sessions", zap.Int("removed", n))
			}
		}
	}
}

func (s *Store) expired(c *Controller) bool {
	if s.ttl <= 0 {
		return false
	}
	// An in-flight submission keeps the session alive.
	if c.busy() {
		return false
	}
	return s.now().Sub(c.LastActive()) > s.ttl
}
