package repository

import (
	"context"

	"adaptive-auth/backend/internal/device/domain"
)

// Repository defines persistence for trusted devices.
type Repository interface {
	// IsTrusted reports whether (userID, fingerprint) is in the trust store.
	IsTrusted(ctx context.Context, userID, fingerprint string) (bool, error)
	// Upsert inserts d or, when the pair already exists, refreshes its last-seen time.
	// created is false when the device was already trusted.
	Upsert(ctx context.Context, d *domain.TrustedDevice) (created bool, err error)
	// ListByUser returns the user's trusted devices, most recently seen first.
	ListByUser(ctx context.Context, userID string) ([]*domain.TrustedDevice, error)
}
