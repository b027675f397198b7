// Package devv1 defines the development-only adaptiveauth.dev.v1.DevService.
package devv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"adaptive-auth/backend/api/codec"
)

const DevService_GetOTP_FullMethodName = "/adaptiveauth.dev.v1.DevService/GetOTP"

type GetOTPRequest struct {
	ChallengeId string `json:"challenge_id"`
}

type GetOTPResponse struct {
	Otp              string `json:"otp"`
	ExpiresAt        string `json:"expires_at"`
	ExpiresInSeconds int32  `json:"expires_in_seconds"`
	Note             string `json:"note,omitempty"`
}

func (x *GetOTPRequest) GetChallengeId() string {
	if x == nil {
		return ""
	}
	return x.ChallengeId
}

type DevServiceClient interface {
	GetOTP(ctx context.Context, in *GetOTPRequest, opts ...grpc.CallOption) (*GetOTPResponse, error)
}

type devServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDevServiceClient(cc grpc.ClientConnInterface) DevServiceClient {
	return &devServiceClient{cc}
}

func (c *devServiceClient) GetOTP(ctx context.Context, in *GetOTPRequest, opts ...grpc.CallOption) (*GetOTPResponse, error) {
	out := new(GetOTPResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	if err := c.cc.Invoke(ctx, DevService_GetOTP_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type DevServiceServer interface {
	GetOTP(context.Context, *GetOTPRequest) (*GetOTPResponse, error)
}

type UnimplementedDevServiceServer struct{}

func (UnimplementedDevServiceServer) GetOTP(context.Context, *GetOTPRequest) (*GetOTPResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOTP not implemented")
}

func RegisterDevServiceServer(s grpc.ServiceRegistrar, srv DevServiceServer) {
	s.RegisterService(&DevService_ServiceDesc, srv)
}

func _DevService_GetOTP_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetOTPRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DevServiceServer).GetOTP(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DevService_GetOTP_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DevServiceServer).GetOTP(ctx, req.(*GetOTPRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var DevService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "adaptiveauth.dev.v1.DevService",
	HandlerType: (*DevServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOTP", Handler: _DevService_GetOTP_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dev/v1/dev.go",
}
