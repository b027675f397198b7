package repository

import (
	"context"
	"database/sql"

	"adaptive-auth/backend/internal/device/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a trusted-device repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// IsTrusted reports whether the pair exists.
func (r *PostgresRepository) IsTrusted(ctx context.Context, userID, fingerprint string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM trusted_devices WHERE user_id = $1 AND fingerprint = $2)`,
		userID, fingerprint).Scan(&ok)
	return ok, err
}

// Upsert relies on UNIQUE (user_id, fingerprint); a conflict only refreshes last_seen_at.
// xmax = 0 holds only for a freshly inserted row.
func (r *PostgresRepository) Upsert(ctx context.Context, d *domain.TrustedDevice) (bool, error) {
	label := d.TrustLabel
	if label == "" {
		label = domain.TrustLabelVerified
	}
	var inserted bool
	err := r.db.QueryRowContext(ctx, `INSERT INTO trusted_devices (id, user_id, fingerprint, trust_label, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, fingerprint) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
		RETURNING (xmax = 0)`,
		d.ID, d.UserID, d.Fingerprint, label, d.FirstSeenAt, d.LastSeenAt).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ListByUser returns the user's trusted devices, most recently seen first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.TrustedDevice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, fingerprint, trust_label, first_seen_at, last_seen_at
		FROM trusted_devices WHERE user_id = $1 ORDER BY last_seen_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.TrustedDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(s rowScanner) (*domain.TrustedDevice, error) {
	var d domain.TrustedDevice
	if err := s.Scan(&d.ID, &d.UserID, &d.Fingerprint, &d.TrustLabel, &d.FirstSeenAt, &d.LastSeenAt); err != nil {
		return nil, err
	}
	d.FirstSeenAt = d.FirstSeenAt.UTC()
	d.LastSeenAt = d.LastSeenAt.UTC()
	return &d, nil
}
