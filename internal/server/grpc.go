// Package server assembles the gRPC server: interceptor chain, stats handler, and service registration.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	auditv1 "adaptive-auth/backend/api/audit/v1"
	authv1 "adaptive-auth/backend/api/auth/v1"
	devv1 "adaptive-auth/backend/api/dev/v1"
	healthhandler "adaptive-auth/backend/internal/health/handler"
	identityhandler "adaptive-auth/backend/internal/identity/handler"
	identityservice "adaptive-auth/backend/internal/identity/service"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/server/interceptors"
	"adaptive-auth/backend/internal/telemetry"
)

// quietMethods are not logged at request level nor emitted as telemetry.
var quietMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
}

// Deps holds service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the auth service for Login/RedeemChallenge. If nil, auth RPCs return Unimplemented.
	Auth *identityservice.AuthService
	// Health is the readiness-driven grpc.health.v1 server. If nil, the health service is not registered.
	Health *healthhandler.Server
	// RiskDebug registers RiskDebugService. Set only when DEBUG_RISK_ENABLED and not production.
	RiskDebug bool
	// AuditHandler is the operator AuditService. If nil, it is not registered. Set together with RiskDebug.
	AuditHandler auditv1.AuditServiceServer
	// DevOTPHandler is the dev-only DevService (GetOTP). If nil, DevService is not registered. Set only when dev OTP is enabled and not production.
	DevOTPHandler devv1.DevServiceServer
}

// NewGRPCServer returns a gRPC server with the OTel stats handler and the request, logging, and telemetry
// interceptors. emitter may be nil.
func NewGRPCServer(emitter telemetry.EventEmitter, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RequestUnary(),
			interceptors.LoggingUnary(logging.For("grpc"), quietMethods),
			interceptors.TelemetryUnary(emitter, quietMethods),
		),
	}
	return grpc.NewServer(append(base, opts...)...)
}

// RegisterServices registers the gRPC services with the given server.
//
// Service → handler mapping:
//   - AuthService       → internal/identity/handler
//   - RiskDebugService  → internal/identity/handler (optional)
//   - AuditService      → internal/audit/handler (optional)
//   - DevService        → internal/devotp/handler (optional)
//   - grpc.health.v1    → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	if deps.RiskDebug {
		authv1.RegisterRiskDebugServiceServer(s, identityhandler.NewRiskDebugServer(deps.Auth))
	}
	if deps.AuditHandler != nil {
		auditv1.RegisterAuditServiceServer(s, deps.AuditHandler)
	}
	if deps.DevOTPHandler != nil {
		devv1.RegisterDevServiceServer(s, deps.DevOTPHandler)
	}
	if deps.Health != nil {
		deps.Health.Register(s)
	}
}
