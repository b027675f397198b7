// migrate runs DB migrations from embedded SQL; run with go run ./cmd/migrate.
package main

import (
	"errors"
	"flag"

	"adaptive-auth/backend/internal/config"
	"adaptive-auth/backend/internal/db/migrate"
	"adaptive-auth/backend/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	log := logging.For("migrate")
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("already at target version")
			return
		}
		log.WithError(err).Fatal("migrate")
	}
	version, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Warn("read version")
		return
	}
	log.WithField("version", version).WithField("dirty", dirty).Info("migrations applied")
}
