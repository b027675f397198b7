package repository

import (
	"context"
	"sync"
	"time"

	"adaptive-auth/backend/internal/identity/domain"
)

// MemoryRepository keeps identities in process memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]domain.Identity
	byUsername map[string]string
}

// NewMemoryRepository returns an empty in-memory identity repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]domain.Identity),
		byUsername: make(map[string]string),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, nil
	}
	i := r.byID[id]
	return &i, nil
}

func (r *MemoryRepository) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[i.Username]; ok {
		return ErrUsernameTaken
	}
	r.byID[i.ID] = *i
	r.byUsername[i.Username] = i.ID
	return nil
}

func (r *MemoryRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	at = at.UTC()
	i.LastLoginAt = &at
	r.byID[id] = i
	return nil
}
