// Package handler implements the operator AuditService over the decision record store.
package handler

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "adaptive-auth/backend/api/audit/v1"
	"adaptive-auth/backend/internal/audit/domain"
	identitydomain "adaptive-auth/backend/internal/identity/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// RecordLister reads decision records newest first.
type RecordLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error)
}

// UserLookup resolves a username; nil, nil when unknown.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*identitydomain.Identity, error)
}

// Server implements AuditService. If records is nil, ListAuditRecords returns Unimplemented.
type Server struct {
	auditv1.UnimplementedAuditServiceServer
	users   UserLookup
	records RecordLister
}

// NewServer returns a new Audit gRPC server.
func NewServer(users UserLookup, records RecordLister) *Server {
	return &Server{users: users, records: records}
}

// ListAuditRecords returns the most recent decision records for a username.
// Limit defaults to 50 and is capped at 500. An unknown username yields NotFound.
func (s *Server) ListAuditRecords(ctx context.Context, req *auditv1.ListAuditRecordsRequest) (*auditv1.ListAuditRecordsResponse, error) {
	if s.records == nil || s.users == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditRecords not implemented")
	}
	username := strings.TrimSpace(req.GetUsername())
	if username == "" {
		return nil, status.Error(codes.InvalidArgument, "username is required")
	}
	limit := int(req.GetLimit())
	if limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	ident, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "identity store unavailable")
	}
	if ident == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	recs, err := s.records.ListByUser(ctx, ident.ID, limit)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "audit store unavailable")
	}
	out := &auditv1.ListAuditRecordsResponse{Records: make([]auditv1.AuditRecord, 0, len(recs))}
	for _, r := range recs {
		out.Records = append(out.Records, recordToProto(r))
	}
	return out, nil
}

func recordToProto(r *domain.Record) auditv1.AuditRecord {
	p := auditv1.AuditRecord{
		Id:            r.ID,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		Origin:        r.Origin,
		Fingerprint:   r.Fingerprint,
		RiskScore:     int32(r.RiskScore),
		RiskLevel:     r.RiskLevel,
		Success:       r.Success,
		FailureReason: r.FailureReason,
	}
	if r.Location != nil {
		lat, lon := r.Location.Latitude, r.Location.Longitude
		p.Latitude, p.Longitude = &lat, &lon
	}
	return p
}
