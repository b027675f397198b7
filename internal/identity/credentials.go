// Package identity verifies local username/password credentials.
package identity

import (
	"context"

	"adaptive-auth/backend/internal/identity/domain"
	"adaptive-auth/backend/internal/security"
)

// IdentityLookup is the minimal identity repository needed for credential checks.
type IdentityLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
}

// PasswordVerifier checks a password against the stored bcrypt hash.
type PasswordVerifier struct {
	users  IdentityLookup
	hasher *security.Hasher
}

// NewPasswordVerifier returns a verifier backed by users.
func NewPasswordVerifier(users IdentityLookup, hasher *security.Hasher) *PasswordVerifier {
	return &PasswordVerifier{users: users, hasher: hasher}
}

// Verify returns the identity when the password matches, nil when the username is unknown or the
// password is wrong, and an error only when the lookup fails. Unknown usernames still pay for a
// bcrypt comparison.
func (v *PasswordVerifier) Verify(ctx context.Context, username, password string) (*domain.Identity, error) {
	ident, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return v.VerifyIdentity(ident, password), nil
}

// VerifyIdentity checks password for an already loaded identity (nil for an unknown username).
func (v *PasswordVerifier) VerifyIdentity(ident *domain.Identity, password string) *domain.Identity {
	if ident == nil || ident.PasswordHash == "" {
		_ = v.hasher.CompareDummy([]byte(password))
		return nil
	}
	if err := v.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil
	}
	return ident
}
