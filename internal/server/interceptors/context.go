package interceptors

import "context"

type contextKey struct{ name string }

var (
	requestIDKey = contextKey{"request_id"}
	clientIPKey  = contextKey{"client_ip"}
)

// WithRequest returns a context carrying the request id and resolved client IP.
// Handlers read them via GetRequestID and ClientIP.
func WithRequest(ctx context.Context, requestID, clientIP string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return ctx
}

// GetRequestID returns the request_id from context and true if set; otherwise "", false.
func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok
}

func getClientIP(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(clientIPKey).(string)
	return v, ok && v != ""
}
