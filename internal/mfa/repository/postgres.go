package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"adaptive-auth/backend/internal/geo"
	"adaptive-auth/backend/internal/mfa/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a challenge repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the challenge. The challenge must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	var lat, lon sql.NullFloat64
	if c.Location != nil {
		lat = sql.NullFloat64{Float64: c.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: c.Location.Longitude, Valid: true}
	}
	state := c.State
	if state == "" {
		state = domain.StateCreated
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO pending_challenges
		(id, user_id, code_hash, state, attempts, origin, fingerprint, latitude, longitude, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.UserID, c.CodeHash, string(state), c.Attempts, c.Origin,
		sql.NullString{String: c.Fingerprint, Valid: c.Fingerprint != ""},
		lat, lon, c.ExpiresAt, c.CreatedAt)
	return err
}

// GetByID returns the challenge for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	var (
		c          domain.Challenge
		state      string
		fp         sql.NullString
		lat, lon   sql.NullFloat64
		redeemedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, code_hash, state, attempts, origin, fingerprint,
		latitude, longitude, expires_at, created_at, redeemed_at
		FROM pending_challenges WHERE id = $1`, id).Scan(
		&c.ID, &c.UserID, &c.CodeHash, &state, &c.Attempts, &c.Origin, &fp,
		&lat, &lon, &c.ExpiresAt, &c.CreatedAt, &redeemedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.State = domain.State(state)
	c.ExpiresAt = c.ExpiresAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	if fp.Valid {
		c.Fingerprint = fp.String
	}
	if lat.Valid && lon.Valid {
		c.Location = geo.NewPoint(lat.Float64, lon.Float64)
	}
	if redeemedAt.Valid {
		t := redeemedAt.Time.UTC()
		c.RedeemedAt = &t
	}
	return &c, nil
}

// IncrementAttempts is a single conditional UPDATE; the row lock serialises concurrent callers.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string, maxAttempts int) (int, bool, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `UPDATE pending_challenges
		SET attempts = attempts + 1,
		    state = CASE WHEN attempts + 1 >= $2 THEN 'locked' ELSE state END
		WHERE id = $1 AND state = 'created' AND attempts < $2
		RETURNING attempts`, id, maxAttempts).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return attempts, true, nil
}

// MarkRedeemed is a compare-and-set from created; exactly one concurrent caller sees ok.
func (r *PostgresRepository) MarkRedeemed(ctx context.Context, id string, maxAttempts int, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_challenges
		SET state = 'redeemed', redeemed_at = $3
		WHERE id = $1 AND state = 'created' AND attempts < $2 AND expires_at > $3`,
		id, maxAttempts, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkExpired moves a created challenge past its expiry to expired.
func (r *PostgresRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_challenges SET state = 'expired'
		WHERE id = $1 AND state = 'created' AND expires_at <= $2`, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
