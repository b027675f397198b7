// Package service is the login orchestrator: it combines credential verification, risk assessment,
// and the second-factor challenge into a single decision per request.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adaptive-auth/backend/internal/audit"
	auditdomain "adaptive-auth/backend/internal/audit/domain"
	devicedomain "adaptive-auth/backend/internal/device/domain"
	"adaptive-auth/backend/internal/geo"
	identitydomain "adaptive-auth/backend/internal/identity/domain"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/metrics"
	"adaptive-auth/backend/internal/mfa"
	mfadomain "adaptive-auth/backend/internal/mfa/domain"
	"adaptive-auth/backend/internal/risk"
	"adaptive-auth/backend/internal/telemetry"
)

// Sentinel errors for the auth service; the handler maps them to gRPC codes.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUpstreamUnavailable = risk.ErrUpstreamUnavailable
)

// Outcome is the result kind of Login or CompleteChallenge.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeFailure           Outcome = "failure"
	OutcomeChallengeRequired Outcome = "challenge_required"
	OutcomeInvalidCode       Outcome = "invalid_code"
	OutcomeExpired           Outcome = "expired"
	OutcomeAttemptsExhausted Outcome = "attempts_exhausted"
	OutcomeNotFound          Outcome = "not_found"
)

// deliveryTimeout bounds one out-of-band code delivery.
const deliveryTimeout = 10 * time.Second

// LoginRequest is one password login attempt. Origin is the caller's network address.
type LoginRequest struct {
	Username    string     `validate:"required,max=255"`
	Password    string     `validate:"required,max=1024"`
	Origin      string     `validate:"max=255"`
	Fingerprint string     `validate:"max=512"`
	Location    *geo.Point `validate:"omitempty"`
}

// LoginDecision is the result of Login.
type LoginDecision struct {
	Outcome    Outcome
	UserID     string
	Assessment *risk.Assessment
	// ChallengeID and ChallengeExpiresAt are set when Outcome is challenge_required.
	ChallengeID        string
	ChallengeExpiresAt time.Time
	// AuditRecorded is false when the decision's audit record could not be written.
	AuditRecorded bool
}

// RiskScore returns the assessed score.
func (d *LoginDecision) RiskScore() int {
	if d.Assessment == nil {
		return 0
	}
	return d.Assessment.Score
}

// RiskLevel returns the assessed level.
func (d *LoginDecision) RiskLevel() risk.Level {
	if d.Assessment == nil {
		return risk.LevelLow
	}
	return d.Assessment.Level
}

// RedeemDecision is the result of CompleteChallenge.
type RedeemDecision struct {
	Outcome Outcome
	UserID  string
	// AttemptsRemaining is meaningful when Outcome is invalid_code.
	AttemptsRemaining int
	AuditRecorded     bool
}

// DebugRequest is the input of AssessRisk.
type DebugRequest struct {
	Username    string     `validate:"required,max=255"`
	Origin      string     `validate:"max=255"`
	Fingerprint string     `validate:"max=512"`
	Location    *geo.Point `validate:"omitempty"`
}

// UserRepo is the minimal identity repository needed by the auth service.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*identitydomain.Identity, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// CredentialVerifier returns the identity for a matching password, nil otherwise.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*identitydomain.Identity, error)
}

// RiskAssessor scores a login attempt.
type RiskAssessor interface {
	Assess(ctx context.Context, in risk.Input) (*risk.Assessment, error)
}

// ChallengeManager creates and redeems second-factor challenges.
type ChallengeManager interface {
	Create(ctx context.Context, p mfa.Params) (*mfadomain.Challenge, string, error)
	Redeem(ctx context.Context, id, code string) (*mfadomain.Challenge, error)
}

// AuditRecorder writes decision records.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) (*auditdomain.Record, error)
}

// DeviceTrust is the write side of the trust store.
type DeviceTrust interface {
	Upsert(ctx context.Context, d *devicedomain.TrustedDevice) (bool, error)
}

var tracer = otel.Tracer("adaptive-auth/auth")

// AuthService implements risk-gated password login and challenge completion.
type AuthService struct {
	users      UserRepo
	verifier   CredentialVerifier
	assessor   RiskAssessor
	challenges ChallengeManager
	deliverer  mfa.Deliverer
	audit      AuditRecorder
	devices    DeviceTrust
	emitter    telemetry.EventEmitter
	validate   *validator.Validate
	now        func() time.Time
	log        *logrus.Entry
}

// NewAuthService returns an AuthService with the given dependencies. deliverer may be nil.
func NewAuthService(
	users UserRepo,
	verifier CredentialVerifier,
	assessor RiskAssessor,
	challenges ChallengeManager,
	deliverer mfa.Deliverer,
	auditRecorder AuditRecorder,
	devices DeviceTrust,
) *AuthService {
	return &AuthService{
		users:      users,
		verifier:   verifier,
		assessor:   assessor,
		challenges: challenges,
		deliverer:  deliverer,
		audit:      auditRecorder,
		devices:    devices,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        func() time.Time { return time.Now().UTC() },
		log:        logging.For("auth"),
	}
}

// SetEmitter sets the telemetry emitter for decision events. Nil disables emission.
func (s *AuthService) SetEmitter(e telemetry.EventEmitter) {
	s.emitter = e
}

// Login assesses risk, then verifies the credential, then either completes the login (low risk)
// or issues a challenge (high risk). Risk is assessed first so a failed credential check is
// recorded with its score and the response timing does not depend on credential validity.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginDecision, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	req.Username = strings.TrimSpace(req.Username)
	req.Fingerprint = strings.TrimSpace(req.Fingerprint)
	if req.Origin == "" {
		req.Origin = audit.UnknownOrigin
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	known, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: identity lookup: %v", ErrUpstreamUnavailable, err)
	}
	userID := ""
	if known != nil {
		userID = known.ID
	}

	assessment, err := s.assessor.Assess(ctx, risk.Input{
		UserID:      userID,
		Origin:      req.Origin,
		Fingerprint: req.Fingerprint,
		Location:    req.Location,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("risk.score", assessment.Score), attribute.String("risk.level", string(assessment.Level)))

	ident, err := s.verifier.Verify(ctx, req.Username, req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: credential check: %v", ErrUpstreamUnavailable, err)
	}

	d := &LoginDecision{Assessment: assessment, UserID: userID}
	entry := audit.Entry{
		UserID:      userID,
		Origin:      req.Origin,
		Fingerprint: req.Fingerprint,
		Location:    req.Location,
		RiskScore:   assessment.Score,
		RiskLevel:   string(assessment.Level),
	}

	switch {
	case ident == nil:
		d.Outcome = OutcomeFailure
		entry.FailureReason = auditdomain.ReasonInvalidCredentials
		d.AuditRecorded = s.recordAudit(ctx, entry)

	case assessment.Level == risk.LevelLow:
		d.Outcome = OutcomeSuccess
		d.UserID = ident.ID
		entry.UserID = ident.ID
		entry.Success = true
		d.AuditRecorded = s.recordAudit(ctx, entry)
		s.touchLastLogin(ctx, ident.ID)

	default:
		c, code, err := s.challenges.Create(ctx, mfa.Params{
			UserID:      ident.ID,
			Origin:      req.Origin,
			Fingerprint: req.Fingerprint,
			Location:    req.Location,
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		d.Outcome = OutcomeChallengeRequired
		d.UserID = ident.ID
		d.ChallengeID = c.ID
		d.ChallengeExpiresAt = c.ExpiresAt
		s.deliver(mfa.Delivery{UserID: ident.ID, ChallengeID: c.ID, Code: code, ExpiresAt: c.ExpiresAt})
	}

	metrics.LoginDecisions.WithLabelValues(string(d.Outcome)).Inc()
	span.SetAttributes(attribute.String("auth.outcome", string(d.Outcome)))
	s.log.WithFields(logrus.Fields{
		"user_id": d.UserID,
		"origin":  req.Origin,
		"outcome": d.Outcome,
		"score":   assessment.Score,
		"level":   assessment.Level,
	}).Info("auth: login decision")
	s.emit(telemetry.EventLoginDecision, d.UserID, req.Origin, string(d.Outcome), map[string]any{
		"risk_score": assessment.Score,
		"risk_level": assessment.Level,
		"signals":    flaggedSignals(assessment),
	})
	return d, nil
}

// CompleteChallenge redeems a challenge. Domain failures are returned as outcomes, not errors.
// On success the device is trusted when the login carried a fingerprint and the decision is
// audited with level high and score 0.
func (s *AuthService) CompleteChallenge(ctx context.Context, challengeID, code string) (*RedeemDecision, error) {
	ctx, span := tracer.Start(ctx, "auth.CompleteChallenge")
	defer span.End()

	challengeID = strings.TrimSpace(challengeID)
	code = strings.TrimSpace(code)
	if err := s.validate.Var(challengeID, "required,max=64"); err != nil {
		return nil, fmt.Errorf("%w: challenge_id: %v", ErrInvalidRequest, err)
	}
	if err := s.validate.Var(code, "required,max=32"); err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrInvalidRequest, err)
	}

	c, err := s.challenges.Redeem(ctx, challengeID, code)
	d := &RedeemDecision{}
	var reason string
	var invalid *mfa.InvalidCodeError
	switch {
	case err == nil:
		d.Outcome = OutcomeSuccess
	case errors.Is(err, mfa.ErrChallengeNotFound):
		d.Outcome = OutcomeNotFound
	case errors.Is(err, mfa.ErrChallengeExpired):
		d.Outcome = OutcomeExpired
		reason = auditdomain.ReasonChallengeExpired
	case errors.Is(err, mfa.ErrAttemptsExhausted):
		d.Outcome = OutcomeAttemptsExhausted
		reason = auditdomain.ReasonChallengeAttemptsExceeded
	case errors.As(err, &invalid):
		d.Outcome = OutcomeInvalidCode
		d.AttemptsRemaining = invalid.Remaining
		reason = auditdomain.ReasonChallengeInvalidCode
	default:
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if c != nil {
		d.UserID = c.UserID
	}

	switch {
	case d.Outcome == OutcomeSuccess:
		s.touchLastLogin(ctx, c.UserID)
		s.trustDevice(ctx, c)
		d.AuditRecorded = s.recordAudit(ctx, challengeEntry(c, true, ""))
	case c != nil:
		d.AuditRecorded = s.recordAudit(ctx, challengeEntry(c, false, reason))
	}

	metrics.ChallengeRedemptions.WithLabelValues(string(d.Outcome)).Inc()
	span.SetAttributes(attribute.String("auth.outcome", string(d.Outcome)))
	entry := s.log.WithFields(logrus.Fields{
		"user_id":      d.UserID,
		"challenge_id": challengeID,
		"outcome":      d.Outcome,
	})
	if d.Outcome == OutcomeSuccess {
		entry.Info("auth: challenge redeemed")
	} else {
		entry.Warn("auth: challenge redemption failed")
	}
	origin := ""
	if c != nil {
		origin = c.Origin
	}
	s.emit(telemetry.EventChallengeRedeemed, d.UserID, origin, string(d.Outcome), map[string]any{
		"challenge_id":       challengeID,
		"attempts_remaining": d.AttemptsRemaining,
	})
	return d, nil
}

// AssessRisk scores a hypothetical attempt for operators. It writes nothing.
func (s *AuthService) AssessRisk(ctx context.Context, req DebugRequest) (*risk.Assessment, error) {
	ctx, span := tracer.Start(ctx, "auth.AssessRisk", trace.WithAttributes(attribute.Bool("debug", true)))
	defer span.End()

	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Origin == "" {
		req.Origin = audit.UnknownOrigin
	}
	ident, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: identity lookup: %v", ErrUpstreamUnavailable, err)
	}
	in := risk.Input{Origin: req.Origin, Fingerprint: strings.TrimSpace(req.Fingerprint), Location: req.Location}
	if ident != nil {
		in.UserID = ident.ID
	}
	return s.assessor.Assess(ctx, in)
}

// recordAudit writes the decision's audit record and reports whether it was stored. A failed
// write does not change the decision; audit.Recorder logs it and counts it in
// audit_write_failures_total.
func (s *AuthService) recordAudit(ctx context.Context, e audit.Entry) bool {
	if s.audit == nil {
		return false
	}
	_, err := s.audit.Record(ctx, e)
	return err == nil
}

func (s *AuthService) touchLastLogin(ctx context.Context, userID string) {
	if err := s.users.UpdateLastLogin(ctx, userID, s.now()); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("auth: failed to update last login")
	}
}

// trustDevice records the challenge's fingerprint as trusted. An existing pair is left trusted.
func (s *AuthService) trustDevice(ctx context.Context, c *mfadomain.Challenge) {
	if c.Fingerprint == "" || s.devices == nil {
		return
	}
	now := s.now()
	created, err := s.devices.Upsert(ctx, &devicedomain.TrustedDevice{
		ID:          uuid.New().String(),
		UserID:      c.UserID,
		Fingerprint: c.Fingerprint,
		TrustLabel:  devicedomain.TrustLabelVerified,
		FirstSeenAt: now,
		LastSeenAt:  now,
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", c.UserID).Error("auth: failed to trust device")
		return
	}
	if created {
		s.log.WithField("user_id", c.UserID).Info("auth: device trusted")
	}
}

func (s *AuthService) deliver(d mfa.Delivery) {
	if s.deliverer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := s.deliverer.Deliver(ctx, d); err != nil {
			metrics.DeliveryFailures.Inc()
			s.log.WithError(err).WithFields(logrus.Fields{
				"user_id":      d.UserID,
				"challenge_id": d.ChallengeID,
			}).Warn("auth: challenge code delivery failed")
		}
	}()
}

func (s *AuthService) emit(eventType, userID, origin, outcome string, meta map[string]any) {
	if s.emitter == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		raw = nil
	}
	telemetry.EmitAsync(s.emitter, &telemetry.Event{
		EventType: eventType,
		Source:    telemetry.SourceAuthService,
		UserID:    userID,
		ClientIP:  origin,
		Outcome:   outcome,
		Metadata:  raw,
		CreatedAt: s.now(),
	})
}

func challengeEntry(c *mfadomain.Challenge, success bool, reason string) audit.Entry {
	return audit.Entry{
		UserID:        c.UserID,
		Origin:        c.Origin,
		Fingerprint:   c.Fingerprint,
		Location:      c.Location,
		RiskScore:     0,
		RiskLevel:     string(risk.LevelHigh),
		Success:       success,
		FailureReason: reason,
	}
}

func flaggedSignals(a *risk.Assessment) []string {
	out := []string{}
	for _, sig := range a.Signals {
		if sig.Flagged {
			out = append(out, sig.Name)
		}
	}
	return out
}
