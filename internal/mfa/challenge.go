// Package mfa manages the lifecycle of one-time-code challenges: creation, single-use redemption,
// expiry and attempt limiting.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"adaptive-auth/backend/internal/geo"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/metrics"
	"adaptive-auth/backend/internal/mfa/domain"
	"adaptive-auth/backend/internal/mfa/repository"
)

// Redemption failures; the orchestrator maps them to outcomes.
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrAttemptsExhausted = errors.New("challenge attempts exhausted")
	ErrInvalidCode       = errors.New("invalid challenge code")
)

// InvalidCodeError is returned for a wrong code and matches ErrInvalidCode.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid challenge code: %d attempts remaining", e.Remaining)
}

// Is makes errors.Is(err, ErrInvalidCode) true.
func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}

// Config is the challenge lifetime and attempt limit.
type Config struct {
	TTL         time.Duration
	MaxAttempts int
}

// DefaultConfig returns a 5 minute lifetime and 3 attempts.
func DefaultConfig() Config {
	return Config{TTL: 5 * time.Minute, MaxAttempts: 3}
}

// Params describes the login a challenge is issued for.
type Params struct {
	UserID      string
	Origin      string
	Fingerprint string
	Location    *geo.Point
}

var tracer = otel.Tracer("adaptive-auth/mfa")

// Manager creates and redeems challenges.
type Manager struct {
	repo     repository.Repository
	cfg      Config
	now      func() time.Time
	generate func() (string, error)
	log      *logrus.Entry
}

// NewManager returns a Manager persisting to repo. Zero fields in cfg take their defaults.
func NewManager(repo repository.Repository, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Manager{
		repo:     repo,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		generate: GenerateOTP,
		log:      logging.For("mfa"),
	}
}

// Config returns the manager's lifetime and attempt limit.
func (m *Manager) Config() Config {
	return m.cfg
}

// Create persists a new challenge and returns it with the plaintext code. The code is never stored.
func (m *Manager) Create(ctx context.Context, p Params) (*domain.Challenge, string, error) {
	ctx, span := tracer.Start(ctx, "mfa.Create")
	defer span.End()

	code, err := m.generate()
	if err != nil {
		return nil, "", fmt.Errorf("mfa: generate code: %w", err)
	}
	now := m.now()
	c := &domain.Challenge{
		ID:          uuid.New().String(),
		UserID:      p.UserID,
		CodeHash:    HashOTP(code),
		State:       domain.StateCreated,
		Origin:      p.Origin,
		Fingerprint: p.Fingerprint,
		Location:    p.Location,
		ExpiresAt:   now.Add(m.cfg.TTL),
		CreatedAt:   now,
	}
	if err := m.repo.Create(ctx, c); err != nil {
		return nil, "", fmt.Errorf("mfa: create challenge: %w", err)
	}
	metrics.ChallengesIssued.Inc()
	span.SetAttributes(attribute.String("challenge.id", c.ID))
	return c, code, nil
}

// Redeem checks code against challenge id. Checks run in order: unknown or already redeemed
// (ErrChallengeNotFound), expired (ErrChallengeExpired), attempts used up (ErrAttemptsExhausted),
// wrong code (*InvalidCodeError). On success the challenge moves to redeemed exactly once.
// The loaded challenge is returned alongside every error except ErrChallengeNotFound and
// persistence failures.
func (m *Manager) Redeem(ctx context.Context, id, code string) (*domain.Challenge, error) {
	ctx, span := tracer.Start(ctx, "mfa.Redeem")
	defer span.End()
	span.SetAttributes(attribute.String("challenge.id", id))

	c, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mfa: load challenge: %w", err)
	}
	if c == nil || c.State == domain.StateRedeemed {
		return nil, ErrChallengeNotFound
	}
	now := m.now()
	if c.State == domain.StateExpired || c.ExpiredAt(now) {
		if c.State == domain.StateCreated {
			if _, err := m.repo.MarkExpired(ctx, id, now); err != nil {
				m.log.WithError(err).WithField("challenge_id", id).Warn("mfa: failed to mark challenge expired")
			}
		}
		return c, ErrChallengeExpired
	}
	if c.State == domain.StateLocked || c.Attempts >= m.cfg.MaxAttempts {
		return c, ErrAttemptsExhausted
	}

	if !OTPEqual(code, c.CodeHash) {
		attempts, ok, err := m.repo.IncrementAttempts(ctx, id, m.cfg.MaxAttempts)
		if err != nil {
			return nil, fmt.Errorf("mfa: record attempt: %w", err)
		}
		if !ok {
			return m.classify(ctx, id, now)
		}
		c.Attempts = attempts
		if attempts >= m.cfg.MaxAttempts {
			c.State = domain.StateLocked
		}
		return c, &InvalidCodeError{Remaining: m.cfg.MaxAttempts - attempts}
	}

	ok, err := m.repo.MarkRedeemed(ctx, id, m.cfg.MaxAttempts, now)
	if err != nil {
		return nil, fmt.Errorf("mfa: redeem challenge: %w", err)
	}
	if !ok {
		return m.classify(ctx, id, now)
	}
	c.State = domain.StateRedeemed
	c.RedeemedAt = &now
	return c, nil
}

// classify re-reads a challenge whose conditional update lost a race and reports why.
func (m *Manager) classify(ctx context.Context, id string, now time.Time) (*domain.Challenge, error) {
	c, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mfa: reload challenge: %w", err)
	}
	switch {
	case c == nil || c.State == domain.StateRedeemed:
		return nil, ErrChallengeNotFound
	case c.State == domain.StateExpired || c.ExpiredAt(now):
		return c, ErrChallengeExpired
	case c.State == domain.StateLocked || c.Attempts >= m.cfg.MaxAttempts:
		return c, ErrAttemptsExhausted
	default:
		return nil, fmt.Errorf("mfa: challenge %s changed state concurrently", id)
	}
}
