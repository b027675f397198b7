package interceptors

import (
	"context"
	"net"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// UnknownClientIP is returned when no address could be resolved.
const UnknownClientIP = "unknown"

// RequestUnary returns a unary server interceptor that resolves the request id (x-request-id or a new uuid)
// and client IP once, stores them on the context, and echoes the request id in the response header.
func RequestUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("x-request-id"); len(vals) > 0 {
				requestID = strings.TrimSpace(vals[0])
			}
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs("x-request-id", requestID))
		return handler(WithRequest(ctx, requestID, resolveClientIP(ctx)), req)
	}
}

// ClientIP returns the client IP stored by RequestUnary, else resolves it from gRPC metadata
// (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if ip, ok := getClientIP(ctx); ok {
		return ip
	}
	return resolveClientIP(ctx)
}

func resolveClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return UnknownClientIP
}
