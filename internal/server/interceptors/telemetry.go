package interceptors

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"adaptive-auth/backend/internal/telemetry"
)

// grpcRequestMetadata is the JSON shape stored in Event.Metadata for grpc_request events.
type grpcRequestMetadata struct {
	FullMethod string `json:"full_method"`
	StatusCode string `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	RequestID  string `json:"request_id,omitempty"`
}

// TelemetryUnary returns a unary server interceptor that emits a telemetry event after each RPC.
// Best-effort: failures are logged and do not fail the RPC. If emitter is nil, the interceptor no-ops.
// skipMethods is the set of full method names to not emit (e.g. health checks).
func TelemetryUnary(emitter telemetry.EventEmitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		requestID, _ := GetRequestID(ctx)
		meta := grpcRequestMetadata{
			FullMethod: info.FullMethod,
			StatusCode: code.String(),
			DurationMs: time.Since(start).Milliseconds(),
			RequestID:  requestID,
		}
		metaJSON, _ := json.Marshal(meta)
		telemetry.EmitAsync(emitter, &telemetry.Event{
			EventType: telemetry.EventGRPCRequest,
			Source:    telemetry.SourceGRPCInterceptor,
			ClientIP:  ClientIP(ctx),
			Outcome:   code.String(),
			Metadata:  metaJSON,
		})
		return resp, err
	}
}
