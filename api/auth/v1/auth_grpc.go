package authv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"adaptive-auth/backend/api/codec"
)

const (
	AuthService_Login_FullMethodName                = "/adaptiveauth.auth.v1.AuthService/Login"
	AuthService_RedeemChallenge_FullMethodName      = "/adaptiveauth.auth.v1.AuthService/RedeemChallenge"
	RiskDebugService_DebugAssessRisk_FullMethodName = "/adaptiveauth.auth.v1.RiskDebugService/DebugAssessRisk"
)

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient interface {
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RedeemChallenge(ctx context.Context, in *RedeemChallengeRequest, opts ...grpc.CallOption) (*RedeemChallengeResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns a client that always uses the JSON codec.
func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc}
}

func (c *authServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := c.cc.Invoke(ctx, AuthService_Login_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) RedeemChallenge(ctx context.Context, in *RedeemChallengeRequest, opts ...grpc.CallOption) (*RedeemChallengeResponse, error) {
	out := new(RedeemChallengeResponse)
	if err := c.cc.Invoke(ctx, AuthService_RedeemChallenge_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RedeemChallenge(context.Context, *RedeemChallengeRequest) (*RedeemChallengeResponse, error)
}

// UnimplementedAuthServiceServer can be embedded to have forward compatible implementations.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}

func (UnimplementedAuthServiceServer) RedeemChallenge(context.Context, *RedeemChallengeRequest) (*RedeemChallengeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RedeemChallenge not implemented")
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

func _AuthService_Login_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LoginRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).Login(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthService_Login_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthServiceServer).Login(ctx, req.(*LoginRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AuthService_RedeemChallenge_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RedeemChallengeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).RedeemChallenge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthService_RedeemChallenge_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthServiceServer).RedeemChallenge(ctx, req.(*RedeemChallengeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "adaptiveauth.auth.v1.AuthService",
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: _AuthService_Login_Handler},
		{MethodName: "RedeemChallenge", Handler: _AuthService_RedeemChallenge_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth/v1/auth.go",
}

// RiskDebugServiceClient is the client API for RiskDebugService.
type RiskDebugServiceClient interface {
	DebugAssessRisk(ctx context.Context, in *DebugAssessRiskRequest, opts ...grpc.CallOption) (*DebugAssessRiskResponse, error)
}

type riskDebugServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewRiskDebugServiceClient(cc grpc.ClientConnInterface) RiskDebugServiceClient {
	return &riskDebugServiceClient{cc}
}

func (c *riskDebugServiceClient) DebugAssessRisk(ctx context.Context, in *DebugAssessRiskRequest, opts ...grpc.CallOption) (*DebugAssessRiskResponse, error) {
	out := new(DebugAssessRiskResponse)
	if err := c.cc.Invoke(ctx, RiskDebugService_DebugAssessRisk_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// RiskDebugServiceServer is the server API for RiskDebugService. Registered only outside production.
type RiskDebugServiceServer interface {
	DebugAssessRisk(context.Context, *DebugAssessRiskRequest) (*DebugAssessRiskResponse, error)
}

func RegisterRiskDebugServiceServer(s grpc.ServiceRegistrar, srv RiskDebugServiceServer) {
	s.RegisterService(&RiskDebugService_ServiceDesc, srv)
}

func _RiskDebugService_DebugAssessRisk_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DebugAssessRiskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskDebugServiceServer).DebugAssessRisk(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RiskDebugService_DebugAssessRisk_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RiskDebugServiceServer).DebugAssessRisk(ctx, req.(*DebugAssessRiskRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RiskDebugService_ServiceDesc is the grpc.ServiceDesc for RiskDebugService.
var RiskDebugService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "adaptiveauth.auth.v1.RiskDebugService",
	HandlerType: (*RiskDebugServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DebugAssessRisk", Handler: _RiskDebugService_DebugAssessRisk_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth/v1/auth.go",
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
}
