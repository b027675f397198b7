package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/metrics"
)

var tracer = otel.Tracer("adaptive-auth/risk")

// Engine evaluates the four signals for an attempt and aggregates them. It never writes.
type Engine struct {
	policy     Policy
	reputation ReputationChecker
	devices    TrustStore
	history    LoginHistory
	now        func() time.Time
	log        *logrus.Entry
}

// NewEngine returns an Engine. A nil reputation checker never flags.
func NewEngine(policy Policy, reputation ReputationChecker, devices TrustStore, history LoginHistory) *Engine {
	return &Engine{
		policy:     policy,
		reputation: reputation,
		devices:    devices,
		history:    history,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logging.For("risk"),
	}
}

// Policy returns the engine's scoring policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Assess scores in. Signals run concurrently; a reputation failure degrades that signal only,
// while a history or trust-store read failure returns ErrUpstreamUnavailable.
func (e *Engine) Assess(ctx context.Context, in Input) (*Assessment, error) {
	ctx, span := tracer.Start(ctx, "risk.Assess")
	defer span.End()

	at := in.At
	if at.IsZero() {
		at = e.now()
	}
	at = at.UTC()

	signals := make([]Signal, 4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		signals[0] = e.originReputation(gctx, in.Origin)
		return nil
	})
	g.Go(func() error {
		s, err := e.newDevice(gctx, in.UserID, in.Fingerprint)
		signals[1] = s
		return err
	})
	g.Go(func() error {
		s, err := e.impossibleTravel(gctx, in, at)
		signals[2] = s
		return err
	})
	g.Go(func() error {
		s, err := e.atypicalTime(gctx, in.UserID, at)
		signals[3] = s
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	score, level, breakdown := Aggregate(e.policy.Threshold, signals)
	a := &Assessment{
		Score:       score,
		Level:       level,
		Threshold:   e.policy.Threshold,
		Signals:     breakdown,
		EvaluatedAt: at,
	}

	metrics.RiskAssessments.WithLabelValues(string(level)).Inc()
	metrics.RiskScore.Observe(float64(score))
	for _, s := range breakdown {
		if s.Flagged {
			metrics.RiskSignalsFlagged.WithLabelValues(s.Name).Inc()
		}
	}
	span.SetAttributes(
		attribute.Int("risk.score", score),
		attribute.String("risk.level", string(level)),
	)
	e.log.WithFields(logrus.Fields{
		"user_id": in.UserID,
		"origin":  in.Origin,
		"score":   score,
		"level":   level,
	}).Debug("risk: assessed")
	return a, nil
}

func (e *Engine) originReputation(ctx context.Context, origin string) Signal {
	s := Signal{Name: SignalOriginReputation, Weight: e.policy.Weights.Reputation}
	if e.reputation == nil {
		return s
	}
	if e.policy.ReputationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.policy.ReputationTimeout)
		defer cancel()
	}
	flagged, err := e.reputation.IsFlagged(ctx, origin)
	if err != nil {
		metrics.ReputationFailOpen.Inc()
		e.log.WithError(err).WithField("origin", origin).Warn("risk: reputation check failed, treating origin as unflagged")
		s.Degraded = true
		return s
	}
	s.Flagged = flagged
	return s
}

func (e *Engine) newDevice(ctx context.Context, userID, fingerprint string) (Signal, error) {
	s := Signal{Name: SignalNewDevice, Weight: e.policy.Weights.NewDevice, Flagged: true}
	if userID == "" || fingerprint == "" || e.devices == nil {
		return s, nil
	}
	trusted, err := e.devices.IsTrusted(ctx, userID, fingerprint)
	if err != nil {
		return s, fmt.Errorf("%w: device trust lookup: %v", ErrUpstreamUnavailable, err)
	}
	s.Flagged = !trusted
	return s, nil
}

func (e *Engine) impossibleTravel(ctx context.Context, in Input, at time.Time) (Signal, error) {
	s := Signal{Name: SignalImpossibleTravel, Weight: e.policy.Weights.ImpossibleTravel}
	if in.UserID == "" || in.Location == nil || e.history == nil {
		return s, nil
	}
	prev, err := e.history.LastSuccessfulWithLocation(ctx, in.UserID)
	if err != nil {
		return s, fmt.Errorf("%w: last login lookup: %v", ErrUpstreamUnavailable, err)
	}
	if prev == nil || prev.Location == nil {
		return s, nil
	}
	s.Flagged = IsImpossibleTravel(*prev.Location, prev.CreatedAt, *in.Location, at,
		e.policy.MaxTravelSpeedKmh, e.policy.SimultaneousDistanceKm)
	return s, nil
}

func (e *Engine) atypicalTime(ctx context.Context, userID string, at time.Time) (Signal, error) {
	s := Signal{Name: SignalAtypicalTime, Weight: e.policy.Weights.AtypicalTime}
	if userID == "" || e.history == nil {
		return s, nil
	}
	times, err := e.history.SuccessfulLoginTimesSince(ctx, userID, at.Add(-e.policy.AtypicalWindow))
	if err != nil {
		return s, fmt.Errorf("%w: login history lookup: %v", ErrUpstreamUnavailable, err)
	}
	s.Flagged = IsAtypicalHour(times, at, e.policy.AtypicalMinLogins, e.policy.AtypicalMaxHourDistance)
	return s, nil
}
