package repository

import (
	"context"
	"time"

	"adaptive-auth/backend/internal/mfa/domain"
)

// Repository defines persistence for pending challenges. The conditional updates are atomic so that
// concurrent redemptions of one challenge cannot both succeed and concurrent wrong guesses cannot
// exceed the attempt limit.
type Repository interface {
	Create(ctx context.Context, c *domain.Challenge) error
	// GetByID returns the challenge for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Challenge, error)
	// IncrementAttempts adds one failed attempt if the challenge is still created and below maxAttempts,
	// moving it to locked when the new count reaches maxAttempts. ok is false when the precondition failed.
	IncrementAttempts(ctx context.Context, id string, maxAttempts int) (attempts int, ok bool, err error)
	// MarkRedeemed moves created to redeemed if attempts < maxAttempts and now < expires_at.
	// ok is false when another caller changed the state first.
	MarkRedeemed(ctx context.Context, id string, maxAttempts int, now time.Time) (ok bool, err error)
	// MarkExpired moves created to expired if now >= expires_at.
	MarkExpired(ctx context.Context, id string, now time.Time) (ok bool, err error)
}
