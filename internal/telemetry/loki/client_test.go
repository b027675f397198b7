package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClient_PushEventJSON(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL+"/", "", srv.Client())

	raw := []byte(`{"eventType":"login_decision","source":"auth_service","userId":"u1","outcome":"challenge_required","createdAt":"2025-05-10T14:00:00Z"}`)
	require.NoError(t, c.PushEventJSON(context.Background(), raw))

	require.Len(t, got.Streams, 1)
	s := got.Streams[0]
	assert.Equal(t, map[string]string{
		"job":        "adaptive-auth",
		"event_type": "login_decision",
		"source":     "auth_service",
		"outcome":    "challenge_required",
	}, s.Stream)
	require.Len(t, s.Values, 1)
	want := time.Date(2025, 5, 10, 14, 0, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, []string{fmtNs(want), string(raw)}, s.Values[0])
}

func TestClient_PushEventJSON_Unparseable(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL, "job-x", srv.Client())

	require.NoError(t, c.PushEventJSON(context.Background(), []byte("not json")))
	require.Len(t, got.Streams, 1)
	assert.Equal(t, map[string]string{"job": "job-x"}, got.Streams[0].Stream)
	assert.Equal(t, "not json", got.Streams[0].Values[0][1])
}

func TestClient_PushEvent_SanitizesLabels(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL, "", srv.Client())

	err := c.PushEvent(context.Background(), time.Now(), "line", map[string]string{"source": "auth service/v1", "empty": "  "})
	require.NoError(t, err)
	assert.Equal(t, "auth_service_v1", got.Streams[0].Stream["source"])
	_, ok := got.Streams[0].Stream["empty"]
	assert.False(t, ok)
}

func TestClient_PushEvent_Non2xx(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	c := NewClient(srv.URL, "", srv.Client())
	assert.ErrorContains(t, c.PushEvent(context.Background(), time.Now(), "line", nil), "400")
}

func TestClient_PushEvent_EmptyBaseURL(t *testing.T) {
	assert.Error(t, NewClient("", "", nil).PushEvent(context.Background(), time.Now(), "line", nil))
}

func fmtNs(ns int64) string {
	b, _ := json.Marshal(ns)
	return string(b)
}
