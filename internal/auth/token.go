package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// expiryMargin is how much remaining lifetime a cached token needs to
// be reused without a refresh.
const expiryMargin = 30 * time.Second

// invalidTokenSignatures are body substrings the registry gateway uses
// on 400/401 responses for expired or revoked tokens.
var invalidTokenSignatures = []string{
	"invalid_access_token",
	"Invalid Access Token",
	"oauth.v2.InvalidAccessToken",
}

// TokenSource obtains and caches a short-lived bearer credential via a
// client-credentials exchange. Refreshes are mutually exclusive and
// idempotent: concurrent callers share one in-flight exchange.
type TokenSource struct {
	tokenURL   string
	key        string
	secret     string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

// NewTokenSource creates a token source for the given exchange endpoint
// and client credentials.
func NewTokenSource(tokenURL, key, secret string, timeout time.Duration, logger *zap.Logger) *TokenSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSource{
		tokenURL:   tokenURL,
		key:        key,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Token returns the cached credential when it has more than the safety
// margin remaining, otherwise performs an exchange.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" && time.Until(s.expiresAt) > expiryMargin {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	return s.refresh(ctx)
}

// ForceRefresh discards the cached credential and performs a fresh
// exchange. Used after a downstream response carries an invalid-token
// signature.
func (s *TokenSource) ForceRefresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	return s.refresh(ctx)
}

// refresh coalesces concurrent exchanges into a single request.
func (s *TokenSource) refresh(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		return s.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *TokenSource) exchange(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(s.key, s.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed: status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access_token")
	}
	if parsed.ExpiresIn <= 0 {
		parsed.ExpiresIn = 3600
	}

	s.mu.Lock()
	s.token = parsed.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	s.mu.Unlock()

	s.logger.Debug("credential refreshed",
		zap.Int64("expires_in_s", parsed.ExpiresIn))

	return parsed.AccessToken, nil
}

// IsInvalidTokenResponse reports whether a 400/401 response body
// matches the gateway's invalid-token signature. Such responses must
// trigger one forced refresh and retry, outside the backoff budget.
func IsInvalidTokenResponse(statusCode int, body string) bool {
	if statusCode != http.StatusBadRequest && statusCode != http.StatusUnauthorized {
		return false
	}
	for _, sig := range invalidTokenSignatures {
		if strings.Contains(body, sig) {
			return true
		}
	}
	return false
}
