package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"adaptive-auth/backend/internal/identity/domain"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at, last_login_at FROM users WHERE id = $1`, id)
}

// GetByUsername returns the identity for username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at, last_login_at FROM users WHERE username = $1`, username)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, arg string) (*domain.Identity, error) {
	var (
		i    domain.Identity
		last sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.CreatedAt = i.CreatedAt.UTC()
	if last.Valid {
		t := last.Time.UTC()
		i.LastLoginAt = &t
	}
	return &i, nil
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	var last sql.NullTime
	if i.LastLoginAt != nil {
		last = sql.NullTime{Time: *i.LastLoginAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at, last_login_at) VALUES ($1, $2, $3, $4, $5)`,
		i.ID, i.Username, i.PasswordHash, i.CreatedAt, last)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUsernameTaken
	}
	return err
}

// UpdateLastLogin sets last_login_at for id.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
	return err
}
