package voxa

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SignedURLResolver produces an authenticated connection URL for an agent.
// Implementations may cache; the session engine calls this once per dial.
type SignedURLResolver interface {
	ResolveSignedURL(ctx context.Context, agentID string) (string, error)
}

type signedURLEntry struct {
	url       string
	expiresAt time.Time
}

// SignedURLManager resolves signed URLs through the REST API and caches
// them per agent until they come within the refresh buffer of expiry.
type SignedURLManager struct {
	api           *APIClient
	ttl           time.Duration
	refreshBuffer time.Duration

	mu    sync.Mutex
	cache map[string]signedURLEntry

	logger *Logger
}

func NewSignedURLManager(api *APIClient, ttl, refreshBuffer time.Duration) *SignedURLManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if refreshBuffer < 0 {
		refreshBuffer = 0
	}
	return &SignedURLManager{
		api:           api,
		ttl:           ttl,
		refreshBuffer: refreshBuffer,
		cache:         make(map[string]signedURLEntry),
		logger:        GetGlobalLogger().WithComponent("signed-url"),
	}
}

// ResolveSignedURL returns a cached URL while it remains comfortably before
// expiry, refreshing through the API otherwise.
func (sm *SignedURLManager) ResolveSignedURL(ctx context.Context, agentID string) (string, error) {
	if agentID == "" {
		return "", NewCredentialsError("agent ID cannot be empty")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if entry, ok := sm.cache[agentID]; ok {
		if time.Now().Before(entry.expiresAt.Add(-sm.refreshBuffer)) {
			sm.logger.WithField("agent_id", agentID).Debug("using cached signed URL")
			return entry.url, nil
		}
	}

	signedURL, err := sm.api.GetSignedURL(ctx, agentID)
	if err != nil {
		return "", NewSignedURLError("failed to resolve signed URL", err).AddDetail("agent_id", agentID)
	}

	expiresAt, ok := signedURLTokenExpiry(signedURL)
	if !ok {
		expiresAt = time.Now().Add(sm.ttl)
	}

	sm.cache[agentID] = signedURLEntry{url: signedURL, expiresAt: expiresAt}
	sm.logger.WithField("agent_id", agentID).
		WithField("expires_at", expiresAt.Format(time.RFC3339)).
		Debug("resolved signed URL")

	return signedURL, nil
}

// Invalidate drops the cached URL for one agent.
func (sm *SignedURLManager) Invalidate(agentID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.cache, agentID)
}

// Clear drops every cached URL.
func (sm *SignedURLManager) Clear() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cache = make(map[string]signedURLEntry)
}

// signedURLTokenExpiry recovers the expiry of a signed URL from the exp
// claim of its token query parameter. The token is not verified; only the
// server can do that, the client just needs a refresh hint.
func signedURLTokenExpiry(signedURL string) (time.Time, bool) {
	parsed, err := url.Parse(signedURL)
	if err != nil {
		return time.Time{}, false
	}

	tokenString := parsed.Query().Get("token")
	if tokenString == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}

	exp, ok := claims["exp"].(float64)
	if !ok || exp <= 0 {
		return time.Time{}, false
	}

	return time.Unix(int64(exp), 0), true
}

// ConversationURL builds the unauthenticated connection URL used when no
// API key is configured. Public agents accept it as-is.
func ConversationURL(wsBaseURL, agentID string) string {
	query := url.Values{}
	query.Set("agent_id", agentID)
	return wsBaseURL + ConversationPath + "?" + query.Encode()
}
