package voxa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func testJWT(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": float64(expiresAt.Unix()),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func newSignedURLTestServer(t *testing.T, hits *atomic.Int32, signedURL func() string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SignedURLPath {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		fmt.Fprintf(w, `{"signed_url":%q}`, signedURL())
	}))
}

func TestSignedURLManager_CachesWhileFresh(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := newSignedURLTestServer(t, &hits, func() string {
		return "wss://api.example.com/v1/conversational_ai/conversation?agent_id=agent_1"
	})
	defer server.Close()

	manager := NewSignedURLManager(NewAPIClient(server.URL, "sk_test"), time.Hour, time.Minute)

	first, err := manager.ResolveSignedURL(context.Background(), "agent_1")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := manager.ResolveSignedURL(context.Background(), "agent_1")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if first != second {
		t.Fatalf("cached URL changed: %q then %q", first, second)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("API hits=%d, want 1", got)
	}
}

func TestSignedURLManager_RefreshesNearTokenExpiry(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := newSignedURLTestServer(t, &hits, func() string {
		// The embedded token expires sooner than the refresh buffer allows.
		token := testJWT(t, time.Now().Add(time.Second))
		return "wss://api.example.com/v1/conversational_ai/conversation?token=" + token
	})
	defer server.Close()

	manager := NewSignedURLManager(NewAPIClient(server.URL, "sk_test"), time.Hour, time.Minute)

	if _, err := manager.ResolveSignedURL(context.Background(), "agent_1"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := manager.ResolveSignedURL(context.Background(), "agent_1"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("API hits=%d, want 2 (stale entry must refresh)", got)
	}
}

func TestSignedURLManager_InvalidateForcesRefetch(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := newSignedURLTestServer(t, &hits, func() string {
		return "wss://api.example.com/v1/conversational_ai/conversation?agent_id=agent_1"
	})
	defer server.Close()

	manager := NewSignedURLManager(NewAPIClient(server.URL, "sk_test"), time.Hour, 0)

	if _, err := manager.ResolveSignedURL(context.Background(), "agent_1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	manager.Invalidate("agent_1")
	if _, err := manager.ResolveSignedURL(context.Background(), "agent_1"); err != nil {
		t.Fatalf("resolve after invalidate: %v", err)
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("API hits=%d, want 2", got)
	}
}

func TestSignedURLManager_RequiresAgentID(t *testing.T) {
	t.Parallel()

	manager := NewSignedURLManager(NewAPIClient("http://127.0.0.1:0", "sk_test"), time.Hour, 0)
	_, err := manager.ResolveSignedURL(context.Background(), "")
	if !IsCode(err, ErrCodeCredentialsMissing) {
		t.Fatalf("err=%v, want code %s", err, ErrCodeCredentialsMissing)
	}
}

func TestSignedURLManager_WrapsAPIFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusForbidden)
	}))
	defer server.Close()

	manager := NewSignedURLManager(NewAPIClient(server.URL, "sk_bad"), time.Hour, 0)
	_, err := manager.ResolveSignedURL(context.Background(), "agent_1")
	if !IsCode(err, ErrCodeSignedURLFailed) {
		t.Fatalf("err=%v, want code %s", err, ErrCodeSignedURLFailed)
	}

	var vErr *Error
	if !errors.As(err, &vErr) {
		t.Fatalf("error is not *Error: %v", err)
	}
	if agentID, ok := vErr.GetDetail("agent_id"); !ok || agentID != "agent_1" {
		t.Fatalf("agent_id detail=%v", agentID)
	}
}

func TestSignedURLTokenExpiry(t *testing.T) {
	t.Parallel()

	expiry := time.Unix(1953000000, 0)
	token := testJWT(t, expiry)

	got, ok := signedURLTokenExpiry("wss://api.example.com/convo?token=" + token)
	if !ok {
		t.Fatalf("expected expiry to be recovered")
	}
	if !got.Equal(expiry) {
		t.Fatalf("expiry=%v, want %v", got, expiry)
	}

	if _, ok := signedURLTokenExpiry("wss://api.example.com/convo?agent_id=a"); ok {
		t.Fatalf("URL without token must not yield an expiry")
	}
	if _, ok := signedURLTokenExpiry("wss://api.example.com/convo?token=not.a.jwt"); ok {
		t.Fatalf("malformed token must not yield an expiry")
	}
}

func TestConversationURL_BuildsFallback(t *testing.T) {
	t.Parallel()

	got := ConversationURL("wss://api.voxa.ai", "agent_123")
	want := "wss://api.voxa.ai/v1/conversational_ai/conversation?agent_id=agent_123"
	if got != want {
		t.Fatalf("url=%q, want %q", got, want)
	}
}

func TestAPIClient_GetSignedURL(t *testing.T) {
	t.Parallel()

	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		if got := r.URL.Query().Get("agent_id"); got != "agent_9" {
			t.Errorf("agent_id=%q, want agent_9", got)
		}
		fmt.Fprint(w, `{"signed_url":"wss://api.example.com/convo?token=tok"}`)
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "sk_test")
	signedURL, err := client.GetSignedURL(context.Background(), "agent_9")
	if err != nil {
		t.Fatalf("GetSignedURL error: %v", err)
	}
	if signedURL != "wss://api.example.com/convo?token=tok" {
		t.Fatalf("signed URL=%q", signedURL)
	}

	if got := header.Get("Authorization"); got != "Bearer sk_test" {
		t.Fatalf("Authorization=%q", got)
	}
	if got := header.Get("User-Agent"); !strings.HasPrefix(got, "voxa-sdk-go/") {
		t.Fatalf("User-Agent=%q", got)
	}
}

func TestAPIClient_GetSignedURL_EmptyResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"signed_url":""}`)
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "sk_test")
	if _, err := client.GetSignedURL(context.Background(), "agent_9"); !IsCode(err, ErrCodeSignedURLFailed) {
		t.Fatalf("err=%v, want code %s", err, ErrCodeSignedURLFailed)
	}
}

func TestAPIClient_HealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "sk_test")
	health, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck error: %v", err)
	}
	if health["status"] != "ok" {
		t.Fatalf("health=%v", health)
	}
}
