package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"adaptive-auth/backend/internal/audit/domain"
	"adaptive-auth/backend/internal/geo"
)

const recordColumns = `id, user_id, created_at, origin, fingerprint, latitude, longitude,
	risk_score, risk_level, success, failure_reason`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the record. The record must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Record) error {
	var lat, lon sql.NullFloat64
	if a.Location != nil {
		lat = sql.NullFloat64{Float64: a.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: a.Location.Longitude, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO audit_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID,
		sql.NullString{String: a.UserID, Valid: a.UserID != ""},
		a.CreatedAt,
		a.Origin,
		sql.NullString{String: a.Fingerprint, Valid: a.Fingerprint != ""},
		lat, lon,
		a.RiskScore,
		a.RiskLevel,
		a.Success,
		sql.NullString{String: a.FailureReason, Valid: a.FailureReason != ""},
	)
	return err
}

// LastSuccessfulWithLocation returns the newest successful record with coordinates, or nil if none.
func (r *PostgresRepository) LastSuccessfulWithLocation(ctx context.Context, userID string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM audit_records
		WHERE user_id = $1 AND success AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY created_at DESC LIMIT 1`, userID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// SuccessfulLoginTimesSince returns created_at of successful records at or after since, oldest first.
func (r *PostgresRepository) SuccessfulLoginTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT created_at FROM audit_records
		WHERE user_id = $1 AND success AND created_at >= $2
		ORDER BY created_at`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	return out, rows.Err()
}

// ListByUser returns up to limit records for userID, newest first. limit <= 0 means no limit.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM audit_records
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, sql.NullInt64{Int64: int64(limit), Valid: limit > 0})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*domain.Record, error) {
	var (
		rec                       domain.Record
		userID, fp, failureReason sql.NullString
		lat, lon                  sql.NullFloat64
	)
	if err := s.Scan(&rec.ID, &userID, &rec.CreatedAt, &rec.Origin, &fp, &lat, &lon,
		&rec.RiskScore, &rec.RiskLevel, &rec.Success, &failureReason); err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if userID.Valid {
		rec.UserID = userID.String
	}
	if fp.Valid {
		rec.Fingerprint = fp.String
	}
	if failureReason.Valid {
		rec.FailureReason = failureReason.String
	}
	if lat.Valid && lon.Valid {
		rec.Location = geo.NewPoint(lat.Float64, lon.Float64)
	}
	return &rec, nil
}
