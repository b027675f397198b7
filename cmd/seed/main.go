// seed inserts a demo identity for local testing. Run via go run ./cmd/seed.
// Idempotent: skips inserts if the demo user already exists. With -history it also records a month of
// successful logins from Milwaukee and a trusted device so every risk signal can be exercised by hand.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/google/uuid"

	auditdomain "adaptive-auth/backend/internal/audit/domain"
	auditrepo "adaptive-auth/backend/internal/audit/repository"
	"adaptive-auth/backend/internal/config"
	"adaptive-auth/backend/internal/db"
	devicedomain "adaptive-auth/backend/internal/device/domain"
	devicerepo "adaptive-auth/backend/internal/device/repository"
	"adaptive-auth/backend/internal/geo"
	identitydomain "adaptive-auth/backend/internal/identity/domain"
	identityrepo "adaptive-auth/backend/internal/identity/repository"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/risk"
	"adaptive-auth/backend/internal/security"
)

const (
	demoFingerprint = "home-macbook-pro"
	demoOrigin      = "192.168.1.100"
	historyLogins   = 10
)

var milwaukee = geo.Point{Latitude: 43.0389, Longitude: -87.9065}

func main() {
	username := flag.String("username", "alice", "demo username")
	password := flag.String("password", "password", "demo password")
	history := flag.Bool("history", true, "also seed login history and a trusted device")
	flag.Parse()

	log := logging.For("seed")
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	defer conn.Close()

	ctx := context.Background()
	users := identityrepo.NewPostgresRepository(conn)
	existing, err := users.GetByUsername(ctx, *username)
	if err != nil {
		log.WithError(err).Fatal("seed check")
	}
	if existing != nil {
		log.WithField("username", *username).Info("seed already applied; skipping")
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(*password))
	if err != nil {
		log.WithError(err).Fatal("hash password")
	}
	now := time.Now().UTC()
	ident := &identitydomain.Identity{
		ID:           uuid.New().String(),
		Username:     *username,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := users.Create(ctx, ident); err != nil {
		log.WithError(err).Fatal("create identity")
	}
	log.WithField("username", *username).Info("created demo identity")

	if !*history {
		return
	}

	audits := auditrepo.NewPostgresRepository(conn)
	for _, at := range historyTimes(now) {
		if err := audits.Create(ctx, successRecord(ident.ID, at)); err != nil {
			log.WithError(err).Fatal("create login history")
		}
	}

	devices := devicerepo.NewPostgresRepository(conn)
	if _, err := devices.Upsert(ctx, &devicedomain.TrustedDevice{
		ID:          uuid.New().String(),
		UserID:      ident.ID,
		Fingerprint: demoFingerprint,
		TrustLabel:  devicedomain.TrustLabelVerified,
		FirstSeenAt: now.AddDate(0, 0, -30),
		LastSeenAt:  now.Add(-20 * time.Minute),
	}); err != nil {
		log.WithError(err).Fatal("create trusted device")
	}
	log.WithField("logins", historyLogins+1).Info("seeded login history and trusted device")
}

// historyTimes returns one login every third day at hours 09:00 to 16:00 UTC, plus one 20 minutes ago.
func historyTimes(now time.Time) []time.Time {
	out := make([]time.Time, 0, historyLogins+1)
	for i := 0; i < historyLogins; i++ {
		day := now.AddDate(0, 0, -3*i)
		at := time.Date(day.Year(), day.Month(), day.Day(), 9+i%8, 0, 0, 0, time.UTC)
		if at.After(now) {
			at = at.AddDate(0, 0, -1)
		}
		out = append(out, at)
	}
	return append(out, now.Add(-20*time.Minute))
}

func successRecord(userID string, at time.Time) *auditdomain.Record {
	loc := milwaukee
	return &auditdomain.Record{
		ID:          uuid.New().String(),
		UserID:      userID,
		CreatedAt:   at,
		Origin:      demoOrigin,
		Fingerprint: demoFingerprint,
		Location:    &loc,
		RiskLevel:   string(risk.LevelLow),
		Success:     true,
	}
}
