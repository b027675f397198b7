package repository

import (
	"context"
	"sort"
	"sync"

	"adaptive-auth/backend/internal/device/domain"
)

type deviceKey struct{ userID, fingerprint string }

// MemoryRepository is an in-memory trust store with the same uniqueness guarantee as the table.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[deviceKey]domain.TrustedDevice
}

// NewMemoryRepository returns an empty in-memory trust store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[deviceKey]domain.TrustedDevice)}
}

func (r *MemoryRepository) IsTrusted(ctx context.Context, userID, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[deviceKey{userID, fingerprint}]
	return ok, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, d *domain.TrustedDevice) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := deviceKey{d.UserID, d.Fingerprint}
	if existing, ok := r.m[k]; ok {
		existing.LastSeenAt = d.LastSeenAt
		r.m[k] = existing
		return false, nil
	}
	stored := *d
	if stored.TrustLabel == "" {
		stored.TrustLabel = domain.TrustLabelVerified
	}
	r.m[k] = stored
	return true, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.TrustedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TrustedDevice
	for k, d := range r.m {
		if k.userID == userID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.After(out[j].LastSeenAt) })
	return out, nil
}
