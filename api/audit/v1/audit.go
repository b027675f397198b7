// Package auditv1 defines the operator adaptiveauth.audit.v1.AuditService for reading decision records.
package auditv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"adaptive-auth/backend/api/codec"
)

const AuditService_ListAuditRecords_FullMethodName = "/adaptiveauth.audit.v1.AuditService/ListAuditRecords"

type ListAuditRecordsRequest struct {
	Username string `json:"username"`
	// Limit caps the number of records; 0 means the server default.
	Limit int32 `json:"limit,omitempty"`
}

type AuditRecord struct {
	Id            string   `json:"id"`
	CreatedAt     string   `json:"created_at"`
	Origin        string   `json:"origin"`
	Fingerprint   string   `json:"fingerprint,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	RiskScore     int32    `json:"risk_score"`
	RiskLevel     string   `json:"risk_level"`
	Success       bool     `json:"success"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

type ListAuditRecordsResponse struct {
	Records []AuditRecord `json:"records"`
}

func (x *ListAuditRecordsRequest) GetUsername() string {
	if x == nil {
		return ""
	}
	return x.Username
}

func (x *ListAuditRecordsRequest) GetLimit() int32 {
	if x == nil {
		return 0
	}
	return x.Limit
}

type AuditServiceClient interface {
	ListAuditRecords(ctx context.Context, in *ListAuditRecordsRequest, opts ...grpc.CallOption) (*ListAuditRecordsResponse, error)
}

type auditServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuditServiceClient(cc grpc.ClientConnInterface) AuditServiceClient {
	return &auditServiceClient{cc}
}

func (c *auditServiceClient) ListAuditRecords(ctx context.Context, in *ListAuditRecordsRequest, opts ...grpc.CallOption) (*ListAuditRecordsResponse, error) {
	out := new(ListAuditRecordsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	if err := c.cc.Invoke(ctx, AuditService_ListAuditRecords_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type AuditServiceServer interface {
	ListAuditRecords(context.Context, *ListAuditRecordsRequest) (*ListAuditRecordsResponse, error)
}

type UnimplementedAuditServiceServer struct{}

func (UnimplementedAuditServiceServer) ListAuditRecords(context.Context, *ListAuditRecordsRequest) (*ListAuditRecordsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuditRecords not implemented")
}

func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}

func _AuditService_ListAuditRecords_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListAuditRecordsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditServiceServer).ListAuditRecords(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuditService_ListAuditRecords_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditServiceServer).ListAuditRecords(ctx, req.(*ListAuditRecordsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "adaptiveauth.audit.v1.AuditService",
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAuditRecords", Handler: _AuditService_ListAuditRecords_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "audit/v1/audit.go",
}
