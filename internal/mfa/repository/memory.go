package repository

import (
	"context"
	"sync"
	"time"

	"adaptive-auth/backend/internal/mfa/domain"
)

// MemoryRepository applies the same conditional transitions as the Postgres repository under one mutex.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]domain.Challenge
}

// NewMemoryRepository returns an empty in-memory challenge repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Challenge)}
}

func (r *MemoryRepository) Create(ctx context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *c
	if stored.State == "" {
		stored.State = domain.StateCreated
	}
	r.m[c.ID] = stored
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) IncrementAttempts(ctx context.Context, id string, maxAttempts int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[id]
	if !ok || c.State != domain.StateCreated || c.Attempts >= maxAttempts {
		return 0, false, nil
	}
	c.Attempts++
	if c.Attempts >= maxAttempts {
		c.State = domain.StateLocked
	}
	r.m[id] = c
	return c.Attempts, true, nil
}

func (r *MemoryRepository) MarkRedeemed(ctx context.Context, id string, maxAttempts int, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[id]
	if !ok || c.State != domain.StateCreated || c.Attempts >= maxAttempts || !now.Before(c.ExpiresAt) {
		return false, nil
	}
	c.State = domain.StateRedeemed
	c.RedeemedAt = &now
	r.m[id] = c
	return true, nil
}

func (r *MemoryRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[id]
	if !ok || c.State != domain.StateCreated || now.Before(c.ExpiresAt) {
		return false, nil
	}
	c.State = domain.StateExpired
	r.m[id] = c
	return true, nil
}
