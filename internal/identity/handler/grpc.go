// Package handler maps the adaptiveauth.auth.v1 gRPC services onto the auth service.
package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "adaptive-auth/backend/api/auth/v1"
	"adaptive-auth/backend/internal/geo"
	"adaptive-auth/backend/internal/identity/service"
	"adaptive-auth/backend/internal/risk"
	"adaptive-auth/backend/internal/server/interceptors"
)

// Response messages shown to the caller. They never reveal whether the username exists.
const (
	msgSuccess           = "login successful"
	msgFailure           = "invalid username or password"
	msgChallengeRequired = "additional verification required"
	msgRedeemed          = "verification successful"
	msgInvalidCode       = "invalid verification code"
	msgExpired           = "verification code expired"
	msgExhausted         = "too many failed attempts"
	msgNotFound          = "verification challenge not found"
)

// AuthServer implements AuthService (Login, RedeemChallenge).
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth *service.AuthService
}

// NewAuthServer returns a new Auth gRPC server. If auth is nil, all RPCs return Unimplemented.
func NewAuthServer(auth *service.AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

// Login assesses the attempt and returns success, failure, or challenge_required.
// The origin address is the caller's client IP.
func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.LoginResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	loc, err := location(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}
	d, err := s.auth.Login(ctx, service.LoginRequest{
		Username:    req.GetUsername(),
		Password:    req.GetPassword(),
		Origin:      interceptors.ClientIP(ctx),
		Fingerprint: req.GetDeviceFingerprint(),
		Location:    loc,
	})
	if err != nil {
		return nil, authErrToStatus(err)
	}
	resp := &authv1.LoginResponse{
		Outcome:   string(d.Outcome),
		RiskScore: int32(d.RiskScore()),
		RiskLevel: string(d.RiskLevel()),
	}
	switch d.Outcome {
	case service.OutcomeSuccess:
		resp.Message = msgSuccess
	case service.OutcomeChallengeRequired:
		resp.Message = msgChallengeRequired
		resp.ChallengeId = d.ChallengeID
		resp.ChallengeExpiresAt = d.ChallengeExpiresAt.UTC().Format(time.RFC3339)
	default:
		resp.Message = msgFailure
	}
	return resp, nil
}

// RedeemChallenge submits a code for a pending challenge.
func (s *AuthServer) RedeemChallenge(ctx context.Context, req *authv1.RedeemChallengeRequest) (*authv1.RedeemChallengeResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method RedeemChallenge not implemented")
	}
	d, err := s.auth.CompleteChallenge(ctx, req.GetChallengeId(), req.GetCode())
	if err != nil {
		return nil, authErrToStatus(err)
	}
	resp := &authv1.RedeemChallengeResponse{Outcome: string(d.Outcome)}
	switch d.Outcome {
	case service.OutcomeSuccess:
		resp.Message = msgRedeemed
	case service.OutcomeInvalidCode:
		remaining := int32(d.AttemptsRemaining)
		resp.AttemptsRemaining = &remaining
		resp.Message = msgInvalidCode
	case service.OutcomeExpired:
		resp.Message = msgExpired
	case service.OutcomeAttemptsExhausted:
		resp.Message = msgExhausted
	default:
		resp.Message = msgNotFound
	}
	return resp, nil
}

// RiskDebugServer implements RiskDebugService. Registered only outside production.
type RiskDebugServer struct {
	auth *service.AuthService
}

// NewRiskDebugServer returns the operator risk debug server.
func NewRiskDebugServer(auth *service.AuthService) *RiskDebugServer {
	return &RiskDebugServer{auth: auth}
}

// DebugAssessRisk returns the full assessment for a hypothetical login without recording anything.
// OriginAddress defaults to the caller's client IP.
func (s *RiskDebugServer) DebugAssessRisk(ctx context.Context, req *authv1.DebugAssessRiskRequest) (*authv1.DebugAssessRiskResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method DebugAssessRisk not implemented")
	}
	loc, err := location(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}
	origin := req.OriginAddress
	if origin == "" {
		origin = interceptors.ClientIP(ctx)
	}
	a, err := s.auth.AssessRisk(ctx, service.DebugRequest{
		Username:    req.GetUsername(),
		Origin:      origin,
		Fingerprint: req.DeviceFingerprint,
		Location:    loc,
	})
	if err != nil {
		return nil, authErrToStatus(err)
	}
	return assessmentToProto(a), nil
}

func assessmentToProto(a *risk.Assessment) *authv1.DebugAssessRiskResponse {
	out := &authv1.DebugAssessRiskResponse{
		RiskScore: int32(a.Score),
		RiskLevel: string(a.Level),
		Threshold: int32(a.Threshold),
		Signals:   make([]authv1.RiskSignal, 0, len(a.Signals)),
	}
	for _, sig := range a.Signals {
		out.Signals = append(out.Signals, authv1.RiskSignal{
			Name:     sig.Name,
			Flagged:  sig.Flagged,
			Points:   int32(sig.Points),
			Weight:   int32(sig.Weight),
			Degraded: sig.Degraded,
		})
	}
	return out
}

func location(lat, lon *float64) (*geo.Point, error) {
	if (lat == nil) != (lon == nil) {
		return nil, status.Error(codes.InvalidArgument, "latitude and longitude must be provided together")
	}
	return geo.FromNullable(lat, lon), nil
}

func authErrToStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return status.Error(codes.Unavailable, "authentication temporarily unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
