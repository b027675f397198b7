// Package handler implements the dev-only gRPC DevService.
package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	devv1 "adaptive-auth/backend/api/dev/v1"
	"adaptive-auth/backend/internal/devotp"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/server/interceptors"
)

const devOTPNote = "DEV MODE ONLY: codes are normally delivered out of band"

// Server implements DevService. Registered only when OTP_RETURN_TO_CLIENT is set outside production.
type Server struct {
	devv1.UnimplementedDevServiceServer
	store devotp.Store
	log   *logrus.Entry
	nowF  func() time.Time
}

// NewServer returns a DevService server reading codes delivered into store.
func NewServer(store devotp.Store) *Server {
	return &Server{
		store: store,
		log:   logging.For("devotp"),
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// GetOTP returns the pending code for a challenge and how long it stays redeemable.
// Challenge ids are UUIDs; anything else is InvalidArgument. Unknown or expired ids are NotFound.
func (s *Server) GetOTP(ctx context.Context, req *devv1.GetOTPRequest) (*devv1.GetOTPResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "dev code store not configured")
	}
	challengeID := req.GetChallengeId()
	if challengeID == "" {
		return nil, status.Error(codes.InvalidArgument, "challenge_id is required")
	}
	if _, err := uuid.Parse(challengeID); err != nil {
		return nil, status.Error(codes.InvalidArgument, "challenge_id must be a UUID")
	}
	code, ok := s.store.Lookup(ctx, challengeID)
	if !ok {
		return nil, status.Error(codes.NotFound, "code not found or expired")
	}

	remaining := code.ExpiresAt.Sub(s.nowF())
	if remaining < 0 {
		remaining = 0
	}
	// The code itself is never logged.
	s.log.WithFields(logrus.Fields{
		"challenge_id": challengeID,
		"client_ip":    interceptors.ClientIP(ctx),
		"expires_at":   code.ExpiresAt.UTC().Format(time.RFC3339),
	}).Warn("dev code read back")

	return &devv1.GetOTPResponse{
		Otp:              code.Value,
		ExpiresAt:        code.ExpiresAt.UTC().Format(time.RFC3339),
		ExpiresInSeconds: int32(remaining / time.Second),
		Note:             devOTPNote,
	}, nil
}
