package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"adaptive-auth/backend/internal/audit/domain"
)

// MemoryRepository keeps audit records in process memory. Used for local runs without DATABASE_URL and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []domain.Record
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends a copy of the record.
func (m *MemoryRepository) Create(ctx context.Context, r *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, copyRecord(r))
	return nil
}

// LastSuccessfulWithLocation returns the newest successful record with coordinates, or nil.
func (m *MemoryRepository) LastSuccessfulWithLocation(ctx context.Context, userID string) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.Record
	for i := range m.records {
		r := &m.records[i]
		if r.UserID != userID || !r.Success || r.Location == nil {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	out := copyRecord(best)
	return &out, nil
}

// SuccessfulLoginTimesSince returns creation times of successful records at or after since, oldest first.
func (m *MemoryRepository) SuccessfulLoginTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []time.Time
	for _, r := range m.records {
		if r.UserID == userID && r.Success && !r.CreatedAt.Before(since) {
			out = append(out, r.CreatedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// ListByUser returns up to limit records for userID, newest first.
func (m *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Record
	for i := range m.records {
		if m.records[i].UserID == userID {
			r := copyRecord(&m.records[i])
			out = append(out, &r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRecord(r *domain.Record) domain.Record {
	out := *r
	if r.Location != nil {
		loc := *r.Location
		out.Location = &loc
	}
	return out
}
