// Package devotp holds issued second-factor codes in memory so a developer can read them back
// through the dev-only DevService. It is wired as an mfa.Deliverer only when OTP_RETURN_TO_CLIENT is set.
package devotp

import (
	"context"
	"sync"
	"time"

	"adaptive-auth/backend/internal/mfa"
)

// Store holds plain codes by challenge id for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores code for challengeID until expiresAt.
	Put(ctx context.Context, challengeID, code string, expiresAt time.Time)
	// Get returns the code for challengeID if present and not expired.
	Get(ctx context.Context, challengeID string) (code string, ok bool)
	// Lookup is Get plus the code's expiry.
	Lookup(ctx context.Context, challengeID string) (Code, bool)
}

// Code is a stored plain code and the instant it stops being redeemable.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store and mfa.Deliverer.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

var _ mfa.Deliverer = (*MemoryStore)(nil)

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Deliver stores the delivered code; it implements mfa.Deliverer.
func (s *MemoryStore) Deliver(ctx context.Context, d mfa.Delivery) error {
	s.Put(ctx, d.ChallengeID, d.Code, d.ExpiresAt)
	return nil
}

// Put stores code for challengeID until expiresAt and drops any expired entries.
func (s *MemoryStore) Put(ctx context.Context, challengeID, code string, expiresAt time.Time) {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, id)
		}
	}
	s.m[challengeID] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for challengeID if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, challengeID string) (string, bool) {
	c, ok := s.Lookup(ctx, challengeID)
	return c.Value, ok
}

// Lookup returns the code and its expiry. Expired entries are removed.
func (s *MemoryStore) Lookup(ctx context.Context, challengeID string) (Code, bool) {
	s.mu.RLock()
	e, ok := s.m[challengeID]
	s.mu.RUnlock()
	if !ok {
		return Code{}, false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, challengeID)
		s.mu.Unlock()
		return Code{}, false
	}
	return Code{Value: e.code, ExpiresAt: e.expiresAt}, true
}

// Len returns the number of stored entries, expired ones included until the next Put.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
