package handler

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	devv1 "adaptive-auth/backend/api/dev/v1"
	"adaptive-auth/backend/internal/devotp"
	"adaptive-auth/backend/internal/mfa"
)

const testChallengeID = "6f1c2a9e-3b4d-4e8f-9a01-2b3c4d5e6f70"

func newTestServer(t *testing.T, now time.Time) (*Server, *devotp.MemoryStore, *test.Hook) {
	t.Helper()
	store := devotp.NewMemoryStore()
	logger, hook := test.NewNullLogger()
	srv := NewServer(store)
	srv.log = logrus.NewEntry(logger)
	srv.nowF = func() time.Time { return now }
	return srv, store, hook
}

func TestGetOTP_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	srv, store, hook := newTestServer(t, now)
	expires := now.Add(90 * time.Second)
	if err := store.Deliver(context.Background(), mfa.Delivery{ChallengeID: testChallengeID, Code: "123456", ExpiresAt: expires}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	resp, err := srv.GetOTP(context.Background(), &devv1.GetOTPRequest{ChallengeId: testChallengeID})
	if err != nil {
		t.Fatalf("GetOTP: %v", err)
	}
	if resp.Otp != "123456" {
		t.Errorf("otp = %q, want %q", resp.Otp, "123456")
	}
	if resp.ExpiresAt != expires.Format(time.RFC3339) {
		t.Errorf("expires_at = %q, want %q", resp.ExpiresAt, expires.Format(time.RFC3339))
	}
	if resp.ExpiresInSeconds != 90 {
		t.Errorf("expires_in_seconds = %d, want 90", resp.ExpiresInSeconds)
	}
	if resp.Note != devOTPNote {
		t.Errorf("note = %q, want %q", resp.Note, devOTPNote)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry for the read")
	}
	if entry.Level != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", entry.Level)
	}
	if entry.Data["challenge_id"] != testChallengeID {
		t.Errorf("challenge_id field = %v", entry.Data["challenge_id"])
	}
	for k, v := range entry.Data {
		if v == "123456" {
			t.Errorf("log field %s carries the code", k)
		}
	}
}

func TestGetOTP_Errors(t *testing.T) {
	now := time.Now().UTC()
	srv, store, hook := newTestServer(t, now)
	store.Put(context.Background(), "not-a-uuid", "999999", now.Add(time.Minute))

	tests := []struct {
		name string
		req  *devv1.GetOTPRequest
		code codes.Code
	}{
		{"empty id", &devv1.GetOTPRequest{}, codes.InvalidArgument},
		{"nil request", nil, codes.InvalidArgument},
		{"malformed id", &devv1.GetOTPRequest{ChallengeId: "not-a-uuid"}, codes.InvalidArgument},
		{"unknown id", &devv1.GetOTPRequest{ChallengeId: testChallengeID}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.GetOTP(context.Background(), tt.req)
			if status.Code(err) != tt.code {
				t.Errorf("code = %v, want %v", status.Code(err), tt.code)
			}
		})
	}
	if len(hook.AllEntries()) != 0 {
		t.Errorf("failed reads logged %d entries, want 0", len(hook.AllEntries()))
	}
}

func TestGetOTP_NilStore(t *testing.T) {
	srv := NewServer(nil)
	_, err := srv.GetOTP(context.Background(), &devv1.GetOTPRequest{ChallengeId: testChallengeID})
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("code = %v, want Unimplemented", status.Code(err))
	}
}
