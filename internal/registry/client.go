package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimharvest/internal/auth"
	"github.com/ppiankov/claimharvest/internal/cache"
	"github.com/ppiankov/claimharvest/internal/ident"
)

// sleepFunc is the backoff sleep used between retries (injectable for tests).
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

const (
	backoffBase = 800 * time.Millisecond
	backoffCap  = 8 * time.Second
	maxBodySize = 8 << 20
)

// Client fetches structured claims and family documents from the
// official registry's REST interface.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      *auth.TokenSource
	claimsStore cache.Store
	familyStore cache.Store
	maxRetries  int
	logger      *zap.Logger
}

// NewClient creates a registry client. claimsStore is keyed by the
// dotted identifier; familyStore by a hash of the request.
func NewClient(baseURL string, timeout time.Duration, tokens *auth.TokenSource, claimsStore, familyStore cache.Store, maxRetries int, logger *zap.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		tokens:      tokens,
		claimsStore: claimsStore,
		familyStore: familyStore,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

// FetchResult is the outcome of one structured fetch.
type FetchResult struct {
	Doc      []byte
	Status   string
	CacheHit bool
	Retries  int
	Elapsed  time.Duration
}

// OK reports whether the fetch yielded a document.
func (r FetchResult) OK() bool {
	return r.Status == StatusOK || r.Status == StatusOKCached
}

// FetchClaims retrieves the structured claims document for one
// canonical identifier. Cache-first; only validated 2xx responses are
// written to the cache.
func (c *Client) FetchClaims(ctx context.Context, id ident.Identifier) FetchResult {
	key := id.Dotted()
	if doc, ok := c.claimsStore.Get(key); ok {
		return FetchResult{Doc: doc, Status: StatusOKCached, CacheHit: true}
	}

	url := fmt.Sprintf("%s/published-data/publication/docdb/%s/claims", c.baseURL, key)
	res := c.getWithPolicy(ctx, url, "", wantXML, StatusNonXML)
	if res.Status == StatusOK {
		if err := c.claimsStore.PutIfAbsent(key, res.Doc); err != nil {
			c.logger.Warn("claims cache write failed", zap.String("docdb", key), zap.Error(err))
		}
	}
	return res
}

type contentCheck func(contentType string) bool

func wantXML(ct string) bool  { return strings.Contains(strings.ToLower(ct), "xml") }
func wantJSON(ct string) bool { return strings.Contains(strings.ToLower(ct), "json") }

// getWithPolicy issues an authenticated GET and applies the retry,
// backoff and refresh policy over transport outcomes. The invalid-token
// refresh-and-retry does not consume a backoff attempt.
func (c *Client) getWithPolicy(ctx context.Context, url, accept string, okType contentCheck, mismatchStatus string) FetchResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("credential acquisition failed", zap.Error(err))
		return FetchResult{Status: StatusAuthError}
	}

	start := time.Now()
	refreshed := false
	retries := 0
	backoff := backoffBase

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		code, ctype, body, reqErr := c.doGet(ctx, url, token, accept)

		if reqErr != nil {
			if ctx.Err() != nil {
				return FetchResult{Status: StatusRequestError, Retries: retries, Elapsed: time.Since(start)}
			}
			if attempt < c.maxRetries {
				retries++
				if sleepFunc(ctx, backoff) != nil {
					break
				}
				backoff = minDuration(backoff*2, backoffCap)
				continue
			}
			return FetchResult{Status: StatusRequestError, Retries: retries, Elapsed: time.Since(start)}
		}

		outcome, status := classify(code, ctype, body, okType, mismatchStatus)
		switch outcome {
		case OutcomeSuccess:
			return FetchResult{Doc: body, Status: StatusOK, Retries: retries, Elapsed: time.Since(start)}

		case OutcomeAuth:
			if refreshed {
				return FetchResult{Status: status, Retries: retries, Elapsed: time.Since(start)}
			}
			refreshed = true
			token, err = c.tokens.ForceRefresh(ctx)
			if err != nil {
				return FetchResult{Status: StatusAuthError, Retries: retries, Elapsed: time.Since(start)}
			}
			// Retry immediately without consuming a backoff attempt.
			attempt--
			continue

		case OutcomeTransient:
			if attempt < c.maxRetries {
				retries++
				if sleepFunc(ctx, backoff) != nil {
					return FetchResult{Status: status, Retries: retries, Elapsed: time.Since(start)}
				}
				backoff = minDuration(backoff*2, backoffCap)
				continue
			}
			return FetchResult{Status: status, Retries: retries, Elapsed: time.Since(start)}

		default:
			return FetchResult{Status: status, Retries: retries, Elapsed: time.Since(start)}
		}
	}

	return FetchResult{Status: StatusRequestError, Retries: retries, Elapsed: time.Since(start)}
}

// classify maps one HTTP exchange onto the outcome enum and a status
// string. Policy never inspects the response again after this point.
func classify(code int, ctype string, body []byte, okType contentCheck, mismatchStatus string) (Outcome, string) {
	switch {
	case code >= 200 && code < 300:
		if !okType(ctype) {
			return OutcomePermanent, mismatchStatus
		}
		return OutcomeSuccess, StatusOK
	case code == http.StatusNotFound:
		return OutcomePermanent, StatusNotFound
	case auth.IsInvalidTokenResponse(code, string(body)):
		return OutcomeAuth, StatusUnauthorized
	case code == http.StatusUnauthorized:
		return OutcomeAuth, StatusUnauthorized
	case code == http.StatusForbidden:
		return OutcomeAuth, StatusForbidden
	case code == http.StatusTooManyRequests || code >= 500:
		return OutcomeTransient, StatusOther(code)
	default:
		return OutcomePermanent, StatusOther(code)
	}
}

func (c *Client) doGet(ctx context.Context, url, token, accept string) (int, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", nil, fmt.Errorf("registry get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, "", nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
