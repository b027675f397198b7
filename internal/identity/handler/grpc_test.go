package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	authv1 "adaptive-auth/backend/api/auth/v1"
	"adaptive-auth/backend/internal/audit"
	auditrepo "adaptive-auth/backend/internal/audit/repository"
	devicerepo "adaptive-auth/backend/internal/device/repository"
	"adaptive-auth/backend/internal/devotp"
	"adaptive-auth/backend/internal/identity"
	identitydomain "adaptive-auth/backend/internal/identity/domain"
	identityrepo "adaptive-auth/backend/internal/identity/repository"
	"adaptive-auth/backend/internal/identity/service"
	"adaptive-auth/backend/internal/mfa"
	mfarepo "adaptive-auth/backend/internal/mfa/repository"
	"adaptive-auth/backend/internal/risk"
	"adaptive-auth/backend/internal/security"
	"adaptive-auth/backend/internal/server/interceptors"
)

type harness struct {
	auth   authv1.AuthServiceClient
	debug  authv1.RiskDebugServiceClient
	codes  *devotp.MemoryStore
	audits *auditrepo.MemoryRepository
}

// newHarness serves the auth and debug services over an in-memory listener backed by in-memory stores.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("password"))
	require.NoError(t, err)
	users := identityrepo.NewMemoryRepository()
	require.NoError(t, users.Create(ctx, &identitydomain.Identity{ID: "user-alice", Username: "alice", PasswordHash: hash, CreatedAt: time.Now().UTC()}))

	audits := auditrepo.NewMemoryRepository()
	devices := devicerepo.NewMemoryRepository()
	store := devotp.NewMemoryStore()
	reputation := risk.ReputationFunc(func(ctx context.Context, origin string) (bool, error) {
		return origin == "192.168.99.7", nil
	})
	svc := service.NewAuthService(
		users,
		identity.NewPasswordVerifier(users, hasher),
		risk.NewEngine(risk.DefaultPolicy(), reputation, devices, audits),
		mfa.NewManager(mfarepo.NewMemoryRepository(), mfa.DefaultConfig()),
		store,
		audit.NewRecorder(audits),
		devices,
	)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(interceptors.RequestUnary()))
	authv1.RegisterAuthServiceServer(s, NewAuthServer(svc))
	authv1.RegisterRiskDebugServiceServer(s, NewRiskDebugServer(svc))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{
		auth:   authv1.NewAuthServiceClient(conn),
		debug:  authv1.NewRiskDebugServiceClient(conn),
		codes:  store,
		audits: audits,
	}
}

func fromIP(ip string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "x-forwarded-for", ip)
}

func (h *harness) code(t *testing.T, challengeID string) string {
	t.Helper()
	var code string
	require.Eventually(t, func() bool {
		var ok bool
		code, ok = h.codes.Get(context.Background(), challengeID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	return code
}

func TestLogin_ChallengeRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := fromIP("203.0.113.5")

	resp, err := h.auth.Login(ctx, &authv1.LoginRequest{Username: "alice", Password: "password", DeviceFingerprint: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, "challenge_required", resp.Outcome)
	assert.Equal(t, int32(105), resp.RiskScore)
	assert.Equal(t, "high", resp.RiskLevel)
	require.NotEmpty(t, resp.ChallengeId)
	_, err = time.Parse(time.RFC3339, resp.ChallengeExpiresAt)
	assert.NoError(t, err)

	code := h.code(t, resp.ChallengeId)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	bad, err := h.auth.RedeemChallenge(ctx, &authv1.RedeemChallengeRequest{ChallengeId: resp.ChallengeId, Code: wrong})
	require.NoError(t, err)
	assert.Equal(t, "invalid_code", bad.Outcome)
	require.NotNil(t, bad.AttemptsRemaining)
	assert.Equal(t, int32(2), *bad.AttemptsRemaining)

	ok, err := h.auth.RedeemChallenge(ctx, &authv1.RedeemChallengeRequest{ChallengeId: resp.ChallengeId, Code: code})
	require.NoError(t, err)
	assert.Equal(t, "success", ok.Outcome)
	assert.Nil(t, ok.AttemptsRemaining)

	again, err := h.auth.Login(ctx, &authv1.LoginRequest{Username: "alice", Password: "password", DeviceFingerprint: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, "success", again.Outcome)
	assert.Equal(t, int32(0), again.RiskScore)
	assert.Empty(t, again.ChallengeId)

	recs, err := h.audits.ListByUser(context.Background(), "user-alice", 0)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.Equal(t, "203.0.113.5", r.Origin)
	}
}

func TestLogin_FailureMessageHidesUsername(t *testing.T) {
	h := newHarness(t)
	ctx := fromIP("203.0.113.5")

	wrongPassword, err := h.auth.Login(ctx, &authv1.LoginRequest{Username: "alice", Password: "nope", DeviceFingerprint: "laptop"})
	require.NoError(t, err)
	unknownUser, err := h.auth.Login(ctx, &authv1.LoginRequest{Username: "mallory", Password: "nope", DeviceFingerprint: "laptop"})
	require.NoError(t, err)

	assert.Equal(t, "failure", wrongPassword.Outcome)
	assert.Equal(t, "failure", unknownUser.Outcome)
	assert.Equal(t, wrongPassword.Message, unknownUser.Message)
}

func TestLogin_InvalidArguments(t *testing.T) {
	h := newHarness(t)
	lat := 43.0
	tests := []struct {
		name string
		req  *authv1.LoginRequest
	}{
		{"missing username", &authv1.LoginRequest{Password: "password"}},
		{"missing password", &authv1.LoginRequest{Username: "alice"}},
		{"half coordinates", &authv1.LoginRequest{Username: "alice", Password: "password", Latitude: &lat}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Login(context.Background(), tt.req)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestRedeemChallenge_NotFound(t *testing.T) {
	h := newHarness(t)
	resp, err := h.auth.RedeemChallenge(context.Background(), &authv1.RedeemChallengeRequest{ChallengeId: "missing", Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "not_found", resp.Outcome)
	assert.Nil(t, resp.AttemptsRemaining)
}

func TestDebugAssessRisk_UsesOriginOverride(t *testing.T) {
	h := newHarness(t)
	lat, lon := 43.0389, -87.9065

	resp, err := h.debug.DebugAssessRisk(fromIP("203.0.113.5"), &authv1.DebugAssessRiskRequest{
		Username:          "alice",
		OriginAddress:     "192.168.99.7",
		DeviceFingerprint: "laptop",
		Latitude:          &lat,
		Longitude:         &lon,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(195), resp.RiskScore)
	assert.Equal(t, "high", resp.RiskLevel)
	assert.Equal(t, int32(100), resp.Threshold)
	require.Len(t, resp.Signals, 4)

	flagged := map[string]bool{}
	for _, s := range resp.Signals {
		flagged[s.Name] = s.Flagged
	}
	assert.True(t, flagged[risk.SignalOriginReputation])
	assert.True(t, flagged[risk.SignalNewDevice])

	recs, err := h.audits.ListByUser(context.Background(), "user-alice", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDebugAssessRisk_DefaultsToClientIP(t *testing.T) {
	h := newHarness(t)
	resp, err := h.debug.DebugAssessRisk(fromIP("192.168.99.7"), &authv1.DebugAssessRiskRequest{Username: "alice", DeviceFingerprint: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, int32(195), resp.RiskScore)
}

func TestNilService_Unimplemented(t *testing.T) {
	srv := NewAuthServer(nil)
	_, err := srv.Login(context.Background(), &authv1.LoginRequest{Username: "a", Password: "b"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = srv.RedeemChallenge(context.Background(), &authv1.RedeemChallengeRequest{ChallengeId: "a", Code: "b"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = NewRiskDebugServer(nil).DebugAssessRisk(context.Background(), &authv1.DebugAssessRiskRequest{Username: "a"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestAuthErrToStatus(t *testing.T) {
	assert.Equal(t, codes.InvalidArgument, status.Code(authErrToStatus(service.ErrInvalidRequest)))
	assert.Equal(t, codes.Unavailable, status.Code(authErrToStatus(risk.ErrUpstreamUnavailable)))
	assert.Equal(t, codes.Internal, status.Code(authErrToStatus(context.DeadlineExceeded)))
}
