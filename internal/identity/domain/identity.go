package domain

import "time"

// Identity is a user known to the credential store. Read-only to the login flow except LastLoginAt.
type Identity struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	// LastLoginAt is nil until the first completed authentication.
	LastLoginAt *time.Time
}
