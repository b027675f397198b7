package repository

import (
	"context"
	"time"

	"adaptive-auth/backend/internal/audit/domain"
)

// Repository defines append-only persistence for audit records and the history reads the risk signals need.
type Repository interface {
	Create(ctx context.Context, r *domain.Record) error
	// LastSuccessfulWithLocation returns the most recent successful record for userID that has coordinates, or nil.
	LastSuccessfulWithLocation(ctx context.Context, userID string) (*domain.Record, error)
	// SuccessfulLoginTimesSince returns creation times of successful records for userID at or after since.
	SuccessfulLoginTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
	// ListByUser returns the newest records for userID, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error)
}
