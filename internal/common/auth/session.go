// internal/common/auth/session.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"campaign-engine/internal/common/cache"
	"campaign-engine/internal/common/errors"
)

// Session is the resolved identity behind a bearer token.
type Session struct {
	UserID string `json:"sub"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// SessionClient resolves bearer tokens against the identity provider's
// userinfo endpoint. Lookups are cached so hot tokens cost one remote call
// per TTL window instead of one per request.
type SessionClient struct {
	userInfoURL string
	httpClient  *http.Client
	cache       cache.Cache
	cacheTTL    time.Duration
}

func NewSessionClient(userInfoURL string, timeout time.Duration, c cache.Cache, cacheTTL time.Duration) *SessionClient {
	return &SessionClient{
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       c,
		cacheTTL:    cacheTTL,
	}
}

// Lookup resolves a token to a session, returning AUTH_REQUIRED for tokens
// the identity provider rejects.
func (c *SessionClient) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, errors.NewAuthRequiredError("missing bearer token")
	}

	cacheKey := "session:" + token
	if cached, ok, err := c.cache.Get(ctx, cacheKey); err == nil && ok {
		var session Session
		if err := json.Unmarshal([]byte(cached), &session); err == nil {
			return &session, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAuthRequiredError("identity provider unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.NewAuthRequiredError("token rejected by identity provider")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewAuthRequiredError(
			fmt.Sprintf("userinfo lookup failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, errors.NewAuthRequiredError("malformed userinfo response")
	}
	if session.UserID == "" {
		return nil, errors.NewAuthRequiredError("userinfo response carries no subject")
	}

	if encoded, err := json.Marshal(session); err == nil {
		_ = c.cache.Set(ctx, cacheKey, string(encoded), c.cacheTTL)
	}
	return &session, nil
}
