// Package handler backs the standard grpc.health.v1 service with database and policy readiness checks.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"adaptive-auth/backend/internal/logging"
)

// checkTimeout bounds each readiness probe.
const checkTimeout = 2 * time.Second

// Pinger is used to check database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is used to check the reputation policy evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server owns a grpc health server and keeps its status in line with the readiness probes.
type Server struct {
	hs       *health.Server
	pinger   Pinger
	policy   PolicyChecker
	services []string
}

// NewServer returns a health server. pinger and policy may be nil; nil probes are skipped.
// services are the service names whose status follows the overall status.
func NewServer(pinger Pinger, policy PolicyChecker, services ...string) *Server {
	return &Server{
		hs:       health.NewServer(),
		pinger:   pinger,
		policy:   policy,
		services: services,
	}
}

// Register registers the grpc.health.v1.Health service.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.hs)
}

// Refresh runs the probes and sets SERVING or NOT_SERVING. It returns the probe error, if any.
func (s *Server) Refresh(ctx context.Context) error {
	err := s.probe(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus("", st)
	for _, name := range s.services {
		s.hs.SetServingStatus(name, st)
	}
	return err
}

func (s *Server) probe(ctx context.Context) error {
	var errs []error
	if s.pinger != nil {
		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := s.pinger.PingContext(pctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
		cancel()
	}
	if s.policy != nil {
		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := s.policy.HealthCheck(pctx); err != nil {
			errs = append(errs, fmt.Errorf("policy: %w", err))
		}
		cancel()
	}
	return errors.Join(errs...)
}

// Run refreshes the status every interval until ctx is done, then marks everything NOT_SERVING.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	log := logging.For("health")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	healthy := true
	for {
		err := s.Refresh(ctx)
		switch {
		case err != nil && healthy:
			log.WithError(err).Warn("health: not serving")
		case err == nil && !healthy:
			log.Info("health: serving")
		}
		healthy = err == nil
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks all services NOT_SERVING and ignores later updates.
func (s *Server) Shutdown() {
	s.hs.Shutdown()
}
