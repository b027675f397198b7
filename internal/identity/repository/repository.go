package repository

import (
	"context"
	"errors"
	"time"

	"adaptive-auth/backend/internal/identity/domain"
)

// ErrUsernameTaken is returned by Create when the username already exists.
var ErrUsernameTaken = errors.New("username already taken")

// Repository defines persistence for identities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
