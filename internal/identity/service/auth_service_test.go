package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adaptive-auth/backend/internal/audit"
	auditdomain "adaptive-auth/backend/internal/audit/domain"
	auditrepo "adaptive-auth/backend/internal/audit/repository"
	devicedomain "adaptive-auth/backend/internal/device/domain"
	devicerepo "adaptive-auth/backend/internal/device/repository"
	"adaptive-auth/backend/internal/geo"
	"adaptive-auth/backend/internal/identity"
	identitydomain "adaptive-auth/backend/internal/identity/domain"
	identityrepo "adaptive-auth/backend/internal/identity/repository"
	"adaptive-auth/backend/internal/mfa"
	mfadomain "adaptive-auth/backend/internal/mfa/domain"
	mfarepo "adaptive-auth/backend/internal/mfa/repository"
	"adaptive-auth/backend/internal/risk"
	"adaptive-auth/backend/internal/security"
)

// captureDeliverer hands delivered codes to the test.
type captureDeliverer struct {
	ch  chan mfa.Delivery
	err error
}

func newCaptureDeliverer() *captureDeliverer {
	return &captureDeliverer{ch: make(chan mfa.Delivery, 8)}
}

func (c *captureDeliverer) Deliver(ctx context.Context, d mfa.Delivery) error {
	c.ch <- d
	return c.err
}

func (c *captureDeliverer) next(t *testing.T) mfa.Delivery {
	t.Helper()
	select {
	case d := <-c.ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for code delivery")
		return mfa.Delivery{}
	}
}

type fixture struct {
	svc       *AuthService
	users     *identityrepo.MemoryRepository
	audit     *auditrepo.MemoryRepository
	devices   *devicerepo.MemoryRepository
	delivered *captureDeliverer
	userID    string
}

func newFixture(t *testing.T, policy risk.Policy, rep risk.ReputationChecker) *fixture {
	t.Helper()
	ctx := context.Background()
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("password"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	users := identityrepo.NewMemoryRepository()
	if err := users.Create(ctx, &identitydomain.Identity{ID: "user-alice", Username: "alice", PasswordHash: hash, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	auditRepo := auditrepo.NewMemoryRepository()
	devices := devicerepo.NewMemoryRepository()
	delivered := newCaptureDeliverer()

	svc := NewAuthService(
		users,
		identity.NewPasswordVerifier(users, hasher),
		risk.NewEngine(policy, rep, devices, auditRepo),
		mfa.NewManager(mfarepo.NewMemoryRepository(), mfa.DefaultConfig()),
		delivered,
		audit.NewRecorder(auditRepo),
		devices,
	)
	return &fixture{svc: svc, users: users, audit: auditRepo, devices: devices, delivered: delivered, userID: "user-alice"}
}

func (f *fixture) records(t *testing.T, userID string) []*auditdomain.Record {
	t.Helper()
	recs, err := f.audit.ListByUser(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	return recs
}

func TestLogin_NewDeviceRequiresChallengeThenTrustsDevice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultPolicy(), nil)

	d, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "password", Origin: "203.0.113.5", Fingerprint: "laptop"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d.Outcome != OutcomeChallengeRequired {
		t.Fatalf("Outcome = %q, want challenge_required", d.Outcome)
	}
	if d.RiskScore() != 105 || d.RiskLevel() != risk.LevelHigh {
		t.Errorf("risk = %d/%s, want 105/high", d.RiskScore(), d.RiskLevel())
	}
	if d.ChallengeID == "" || d.ChallengeExpiresAt.IsZero() {
		t.Fatalf("challenge not set: %+v", d)
	}
	if n := len(f.records(t, f.userID)); n != 0 {
		t.Errorf("audit records before redemption = %d, want 0", n)
	}

	delivery := f.delivered.next(t)
	if delivery.ChallengeID != d.ChallengeID || len(delivery.Code) != 6 {
		t.Fatalf("delivery = %+v", delivery)
	}

	r, err := f.svc.CompleteChallenge(ctx, d.ChallengeID, delivery.Code)
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if r.Outcome != OutcomeSuccess || r.UserID != f.userID || !r.AuditRecorded {
		t.Fatalf("redeem = %+v", r)
	}

	trusted, _ := f.devices.IsTrusted(ctx, f.userID, "laptop")
	if !trusted {
		t.Error("device should be trusted after redemption")
	}
	recs := f.records(t, f.userID)
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	rec := recs[0]
	if !rec.Success || rec.RiskLevel != "high" || rec.RiskScore != 0 || rec.Origin != "203.0.113.5" || rec.Fingerprint != "laptop" {
		t.Errorf("audit record = %+v", rec)
	}
	u, _ := f.users.GetByID(ctx, f.userID)
	if u.LastLoginAt == nil {
		t.Error("LastLoginAt should be set")
	}

	again, err := f.svc.CompleteChallenge(ctx, d.ChallengeID, delivery.Code)
	if err != nil {
		t.Fatalf("second CompleteChallenge: %v", err)
	}
	if again.Outcome != OutcomeNotFound {
		t.Errorf("second redeem Outcome = %q, want not_found", again.Outcome)
	}

	d2, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "password", Origin: "203.0.113.5", Fingerprint: "laptop"})
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if d2.Outcome != OutcomeSuccess || d2.RiskScore() != 0 || !d2.AuditRecorded {
		t.Errorf("second login = %+v score %d, want success with score 0", d2, d2.RiskScore())
	}
}

func TestLogin_WrongPasswordRecordsFailureWithRisk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultPolicy(), nil)

	d, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "wrong", Origin: "203.0.113.5"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d.Outcome != OutcomeFailure || d.ChallengeID != "" {
		t.Fatalf("decision = %+v", d)
	}
	recs := f.records(t, f.userID)
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	if recs[0].Success || recs[0].FailureReason != auditdomain.ReasonInvalidCredentials || recs[0].RiskScore != 105 || recs[0].RiskLevel != "high" {
		t.Errorf("audit record = %+v", recs[0])
	}
	select {
	case got := <-f.delivered.ch:
		t.Errorf("no code should be delivered on failure, got %+v", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newFixture(t, risk.DefaultPolicy(), nil)
	d, err := f.svc.Login(context.Background(), LoginRequest{Username: "mallory", Password: "password", Fingerprint: "fp"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d.Outcome != OutcomeFailure || d.UserID != "" {
		t.Fatalf("decision = %+v", d)
	}
	recs := f.records(t, "")
	if len(recs) != 1 || recs[0].Origin != audit.UnknownOrigin || recs[0].RiskScore != 105 {
		t.Errorf("audit records = %+v", recs)
	}
}

func TestLogin_LowRiskDoesNotTrustDevice(t *testing.T) {
	ctx := context.Background()
	policy := risk.DefaultPolicy()
	policy.Threshold = 200
	f := newFixture(t, policy, nil)

	d, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "password", Fingerprint: "tablet"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d.Outcome != OutcomeSuccess || d.RiskScore() != 105 || d.RiskLevel() != risk.LevelLow {
		t.Fatalf("decision = %+v", d)
	}
	if trusted, _ := f.devices.IsTrusted(ctx, f.userID, "tablet"); trusted {
		t.Error("low-risk login must not trust the device")
	}
	u, _ := f.users.GetByID(ctx, f.userID)
	if u.LastLoginAt == nil {
		t.Error("LastLoginAt should be set on low-risk success")
	}
}

func TestLogin_ReputationFlaggedOriginWithTrustedDevice(t *testing.T) {
	ctx := context.Background()
	rep := risk.ReputationFunc(func(ctx context.Context, origin string) (bool, error) {
		return origin == "10.0.99.4", nil
	})
	f := newFixture(t, risk.DefaultPolicy(), rep)
	_, _ = f.devices.Upsert(ctx, &devicedomain.TrustedDevice{ID: "d1", UserID: f.userID, Fingerprint: "laptop"})

	d, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "password", Origin: "10.0.99.4", Fingerprint: "laptop"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d.Outcome != OutcomeSuccess || d.RiskScore() != 90 {
		t.Errorf("decision = %+v score %d, want success with 90", d, d.RiskScore())
	}
}

func TestCompleteChallenge_WrongCodeIsAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultPolicy(), nil)
	d, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "password", Fingerprint: "laptop"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	code := f.delivered.next(t).Code
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for _, want := range []int{2, 1, 0} {
		r, err := f.svc.CompleteChallenge(ctx, d.ChallengeID, wrong)
		if err != nil {
			t.Fatalf("CompleteChallenge: %v", err)
		}
		if r.Outcome != OutcomeInvalidCode || r.AttemptsRemaining != want {
			t.Errorf("redeem = %+v, want invalid_code with %d remaining", r, want)
		}
	}
	r, err := f.svc.CompleteChallenge(ctx, d.ChallengeID, code)
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if r.Outcome != OutcomeAttemptsExhausted {
		t.Errorf("Outcome = %q, want attempts_exhausted", r.Outcome)
	}

	recs := f.records(t, f.userID)
	if len(recs) != 4 {
		t.Fatalf("audit records = %d, want 4", len(recs))
	}
	reasons := map[string]int{}
	for _, rec := range recs {
		if rec.Success {
			t.Errorf("unexpected success record %+v", rec)
		}
		reasons[rec.FailureReason]++
	}
	if reasons[auditdomain.ReasonChallengeInvalidCode] != 3 || reasons[auditdomain.ReasonChallengeAttemptsExceeded] != 1 {
		t.Errorf("reasons = %v", reasons)
	}
	if trusted, _ := f.devices.IsTrusted(ctx, f.userID, "laptop"); trusted {
		t.Error("device must not be trusted after a locked challenge")
	}
}

func TestCompleteChallenge_UnknownIDNotAudited(t *testing.T) {
	f := newFixture(t, risk.DefaultPolicy(), nil)
	r, err := f.svc.CompleteChallenge(context.Background(), "missing", "123456")
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if r.Outcome != OutcomeNotFound || r.AuditRecorded {
		t.Errorf("redeem = %+v", r)
	}
	if n := len(f.records(t, "")); n != 0 {
		t.Errorf("audit records = %d, want 0", n)
	}
}

func TestCompleteChallenge_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultPolicy(), nil)
	d, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "password", Fingerprint: "laptop"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	code := f.delivered.next(t).Code

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[Outcome]int{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.svc.CompleteChallenge(ctx, d.ChallengeID, code)
			if err != nil {
				t.Errorf("CompleteChallenge: %v", err)
				return
			}
			mu.Lock()
			outcomes[r.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if outcomes[OutcomeSuccess] != 1 || outcomes[OutcomeNotFound] != 7 {
		t.Errorf("outcomes = %v, want one success and seven not_found", outcomes)
	}
	devices, _ := f.devices.ListByUser(ctx, f.userID)
	if len(devices) != 1 {
		t.Errorf("trusted devices = %d, want 1", len(devices))
	}
}

// stubChallenges returns a fixed redemption result.
type stubChallenges struct {
	c   *mfadomain.Challenge
	err error
}

func (s *stubChallenges) Create(ctx context.Context, p mfa.Params) (*mfadomain.Challenge, string, error) {
	return nil, "", errors.New("not used")
}

func (s *stubChallenges) Redeem(ctx context.Context, id, code string) (*mfadomain.Challenge, error) {
	return s.c, s.err
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, e audit.Entry) (*auditdomain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.entries = append(m.entries, e)
	return &auditdomain.Record{}, nil
}

func TestCompleteChallenge_OutcomeMapping(t *testing.T) {
	c := &mfadomain.Challenge{ID: "c1", UserID: "u1", Origin: "203.0.113.1", Fingerprint: "fp"}
	tests := []struct {
		name       string
		c          *mfadomain.Challenge
		err        error
		want       Outcome
		wantReason string
		wantAudit  bool
	}{
		{"expired", c, mfa.ErrChallengeExpired, OutcomeExpired, auditdomain.ReasonChallengeExpired, true},
		{"exhausted", c, mfa.ErrAttemptsExhausted, OutcomeAttemptsExhausted, auditdomain.ReasonChallengeAttemptsExceeded, true},
		{"invalid", c, &mfa.InvalidCodeError{Remaining: 1}, OutcomeInvalidCode, auditdomain.ReasonChallengeInvalidCode, true},
		{"not found", nil, mfa.ErrChallengeNotFound, OutcomeNotFound, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memoryRecorder{}
			svc := NewAuthService(identityrepo.NewMemoryRepository(), nil, nil, &stubChallenges{c: tt.c, err: tt.err}, nil, rec, nil)
			r, err := svc.CompleteChallenge(context.Background(), "c1", "123456")
			if err != nil {
				t.Fatalf("CompleteChallenge: %v", err)
			}
			if r.Outcome != tt.want {
				t.Errorf("Outcome = %q, want %q", r.Outcome, tt.want)
			}
			if got := len(rec.entries) == 1; got != tt.wantAudit {
				t.Fatalf("audited = %v, want %v", got, tt.wantAudit)
			}
			if tt.wantAudit {
				e := rec.entries[0]
				if e.Success || e.FailureReason != tt.wantReason || e.RiskLevel != "high" || e.Origin != "203.0.113.1" {
					t.Errorf("entry = %+v", e)
				}
			}
		})
	}
}

func TestCompleteChallenge_StoreFailureIsUpstream(t *testing.T) {
	svc := NewAuthService(identityrepo.NewMemoryRepository(), nil, nil, &stubChallenges{err: errors.New("db down")}, nil, &memoryRecorder{}, nil)
	_, err := svc.CompleteChallenge(context.Background(), "c1", "123456")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestCompleteChallenge_InvalidRequest(t *testing.T) {
	f := newFixture(t, risk.DefaultPolicy(), nil)
	for _, tc := range []struct{ id, code string }{{"", "123456"}, {"c1", ""}, {"c1", "   "}} {
		if _, err := f.svc.CompleteChallenge(context.Background(), tc.id, tc.code); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("CompleteChallenge(%q, %q) err = %v, want ErrInvalidRequest", tc.id, tc.code, err)
		}
	}
}

func TestLogin_AuditFailureDoesNotChangeDecision(t *testing.T) {
	ctx := context.Background()
	policy := risk.DefaultPolicy()
	policy.Threshold = 200
	f := newFixture(t, policy, nil)
	f.svc.audit = &memoryRecorder{err: errors.New("disk full")}

	d, err := f.svc.Login(ctx, LoginRequest{Username: "alice", Password: "password"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d.Outcome != OutcomeSuccess || d.AuditRecorded {
		t.Errorf("decision = %+v, want success with AuditRecorded=false", d)
	}
}

func TestLogin_InvalidRequest(t *testing.T) {
	f := newFixture(t, risk.DefaultPolicy(), nil)
	tests := []LoginRequest{
		{Username: "", Password: "password"},
		{Username: "   ", Password: "password"},
		{Username: "alice", Password: ""},
		{Username: "alice", Password: "password", Location: geo.NewPoint(91, 0)},
		{Username: "alice", Password: "password", Location: geo.NewPoint(0, -181)},
	}
	for _, req := range tests {
		if _, err := f.svc.Login(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Login(%+v) err = %v, want ErrInvalidRequest", req, err)
		}
	}
}

type failingUsers struct{}

func (failingUsers) GetByUsername(context.Context, string) (*identitydomain.Identity, error) {
	return nil, errors.New("connection refused")
}

func (failingUsers) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func TestLogin_IdentityLookupFailure(t *testing.T) {
	svc := NewAuthService(failingUsers{}, nil, nil, nil, nil, &memoryRecorder{}, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password"})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestLogin_DeliveryFailureDoesNotChangeDecision(t *testing.T) {
	f := newFixture(t, risk.DefaultPolicy(), nil)
	f.delivered.err = errors.New("smtp down")

	d, err := f.svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d.Outcome != OutcomeChallengeRequired {
		t.Errorf("Outcome = %q, want challenge_required", d.Outcome)
	}
	f.delivered.next(t)
}

func TestAssessRisk_IsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, risk.DefaultPolicy(), nil)

	a, err := f.svc.AssessRisk(ctx, DebugRequest{Username: "alice", Fingerprint: "laptop", Location: geo.NewPoint(43.0389, -87.9065)})
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if a.Score != 105 || len(a.Signals) != 4 {
		t.Errorf("assessment = %+v", a)
	}
	if n := len(f.records(t, f.userID)); n != 0 {
		t.Errorf("AssessRisk wrote %d audit records", n)
	}
	u, _ := f.users.GetByID(ctx, f.userID)
	if u.LastLoginAt != nil {
		t.Error("AssessRisk must not update last login")
	}
	if _, err := f.svc.AssessRisk(ctx, DebugRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty DebugRequest err = %v, want ErrInvalidRequest", err)
	}
}
