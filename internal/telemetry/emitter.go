package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event types.
const (
	EventLoginDecision     = "login_decision"
	EventChallengeRedeemed = "challenge_redeemed"
	EventGRPCRequest       = "grpc_request"
)

// Event sources.
const (
	SourceAuthService     = "auth_service"
	SourceGRPCInterceptor = "grpc_interceptor"
)

// Event is one decision telemetry record. Field names match what the Loki forwarder reads.
type Event struct {
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	UserID    string          `json:"userId,omitempty"`
	ClientIP  string          `json:"clientIp,omitempty"`
	Outcome   string          `json:"outcome,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EventEmitter emits telemetry events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Fanout sends each event to every emitter and joins their errors.
type Fanout []EventEmitter

// Emit calls every non-nil emitter.
func (f Fanout) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, em := range f {
		if em == nil {
			continue
		}
		if err := em.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
