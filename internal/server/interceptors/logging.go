package interceptors

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnary returns a unary server interceptor that logs one line per RPC with method, code, and duration.
// Internal and Unavailable errors log at error level, other failures at warn, successes at debug.
func LoggingUnary(log *logrus.Entry, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		entry := log.WithFields(logrus.Fields{
			"method":      info.FullMethod,
			"code":        code.String(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   ClientIP(ctx),
		})
		if id, ok := GetRequestID(ctx); ok {
			entry = entry.WithField("request_id", id)
		}
		switch code {
		case codes.OK:
			entry.Debug("rpc completed")
		case codes.Internal, codes.Unavailable, codes.Unknown:
			entry.WithError(err).Error("rpc failed")
		default:
			entry.WithError(err).Warn("rpc rejected")
		}
		return resp, err
	}
}
