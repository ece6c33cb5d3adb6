package webpub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/ppiankov/claimharvest/internal/cache"
	"github.com/ppiankov/claimharvest/internal/ident"
)

// Fetch statuses for the secondary source.
const (
	StatusOK           = "OK"
	StatusOKAlt        = "OK_ALT"
	StatusOKCached     = "OK_CACHED"
	StatusNotFound     = "NOT_FOUND"
	StatusBlocked      = "BLOCKED"
	StatusNonHTML      = "NON_HTML"
	StatusNoClaims     = "NO_CLAIMS"
	StatusConsentPage  = "CONSENT_OR_ROBOT_PAGE"
	StatusRobotsDenied = "ROBOTS_DISALLOWED"
	StatusRequestError = "ERROR_REQUEST"
)

// StatusHTTPError formats the status for an unclassified HTTP failure.
func StatusHTTPError(code int) string {
	return fmt.Sprintf("ERROR_HTTP_%d", code)
}

// minClaimsChars is the minimum extracted length counted as a real
// claims region; anything shorter is "no claims found".
const minClaimsChars = 80

// RobotsPolicy answers whether a URL may be fetched.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) bool
}

// Fetcher performs a best-effort scrape of the public per-publication
// page when no registry candidate yields valid structured claims. Only
// extracted claims text is ever persisted, never raw page content.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	store      cache.Store
	userAgent  string
	maxRetries int
	robots     RobotsPolicy
	logger     *zap.Logger
}

// sleepFunc is the backoff sleep used between retries (injectable for tests).
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// NewFetcher creates a secondary-source fetcher. store is keyed by the
// concatenated publication string; robots may be nil to skip the
// robots.txt check.
func NewFetcher(baseURL string, timeout time.Duration, userAgent string, store cache.Store, maxRetries int, robots RobotsPolicy, logger *zap.Logger) *Fetcher {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		robots:     robots,
		logger:     logger,
	}
}

// Result is the outcome of one secondary fetch.
type Result struct {
	Text     string
	Status   string
	Resolved string // slug that actually served the claims
	PageLang string
	CacheHit bool
	Live     bool // at least one network request was made
}

// OK reports whether the fetch yielded claims text.
func (r Result) OK() bool {
	return r.Status == StatusOK || r.Status == StatusOKAlt || r.Status == StatusOKCached
}

// FetchClaims resolves a seed identifier to claims text. Cache-first by
// the original query key; slug variants are tried in order (original
// first, then the zero-padded serial variant), each against the
// English-locale page with a fallback to the original-locale page on
// 404. A blocked response aborts all remaining variants. Success is
// cached under the originally queried key, not the resolved variant.
func (f *Fetcher) FetchClaims(ctx context.Context, seed ident.Identifier) Result {
	key := seed.Concat()
	if text, ok := f.store.Get(key); ok {
		if strings.TrimSpace(string(text)) != "" {
			return Result{Text: string(text), Status: StatusOKCached, Resolved: key, CacheHit: true}
		}
		// A whitespace-only entry is corrupted; remove it so the next
		// verified success can be written under this key.
		if err := f.store.Delete(key); err != nil {
			f.logger.Warn("corrupted claims text entry removal failed", zap.String("publication", key), zap.Error(err))
		}
	}

	slugs := []string{key}
	if alt, ok := seed.InsertZeroVariant(); ok {
		slugs = append(slugs, alt.Concat())
	}

	if f.robots != nil && !f.robots.IsAllowed(ctx, f.pageURL(key, false)) {
		return Result{Status: StatusRobotsDenied}
	}

	lastStatus := StatusNotFound
	for i, slug := range slugs {
		res := f.fetchSlug(ctx, slug)
		res.Live = true
		switch res.Status {
		case StatusOK:
			if i > 0 {
				res.Status = StatusOKAlt
			}
			if err := f.store.PutIfAbsent(key, []byte(res.Text)); err != nil {
				f.logger.Warn("claims text cache write failed", zap.String("publication", key), zap.Error(err))
			}
			return res
		case StatusBlocked, StatusConsentPage, StatusRequestError:
			// Rate-limit or bot-detection signals are not per-variant
			// failures; stop probing.
			return res
		default:
			if strings.HasPrefix(res.Status, "ERROR_HTTP_") {
				return res
			}
			lastStatus = res.Status
		}
	}

	return Result{Status: lastStatus, Live: true}
}

// fetchSlug tries the English-locale page for one slug, falling back to
// the original-locale page on a not-found response.
func (f *Fetcher) fetchSlug(ctx context.Context, slug string) Result {
	code, ctype, body, err := f.getWithRetry(ctx, f.pageURL(slug, true))
	if err != nil {
		return Result{Status: StatusRequestError}
	}
	if code == http.StatusNotFound {
		code, ctype, body, err = f.getWithRetry(ctx, f.pageURL(slug, false))
		if err != nil {
			return Result{Status: StatusRequestError}
		}
	}

	switch {
	case code == http.StatusNotFound:
		return Result{Status: StatusNotFound}
	case code == http.StatusTooManyRequests || code == http.StatusForbidden:
		return Result{Status: StatusBlocked, Resolved: slug}
	case code >= 400:
		return Result{Status: StatusHTTPError(code), Resolved: slug}
	}

	if !strings.Contains(strings.ToLower(ctype), "html") {
		return Result{Status: StatusNonHTML}
	}
	rawHTML := string(body)
	if strings.TrimSpace(rawHTML) == "" {
		return Result{Status: StatusNoClaims}
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Result{Status: StatusNoClaims}
	}

	// Interstitials can hide behind a 2xx status; treat them as fetch
	// failures and never cache.
	if looksLikeConsentOrRobot(doc, rawHTML) {
		return Result{Status: StatusConsentPage, Resolved: slug}
	}

	text := extractClaimsText(doc)
	if len(text) < minClaimsChars {
		return Result{Status: StatusNoClaims}
	}

	return Result{Text: text, Status: StatusOK, Resolved: slug, PageLang: pageLang(doc)}
}

// getWithRetry retries 5xx and transport errors with capped exponential
// backoff. 429/403 are deliberately not retried here: they are blocking
// signals handled by the caller.
func (f *Fetcher) getWithRetry(ctx context.Context, url string) (int, string, []byte, error) {
	backoff := 800 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		code, ctype, body, err := f.doGet(ctx, url)
		if err == nil && code < 500 {
			return code, ctype, body, nil
		}
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return 0, "", nil, err
			}
		} else {
			lastErr = fmt.Errorf("server error: status %d", code)
		}
		if attempt < f.maxRetries {
			if sleepFunc(ctx, backoff) != nil {
				return 0, "", nil, ctx.Err()
			}
			if backoff *= 2; backoff > 8*time.Second {
				backoff = 8 * time.Second
			}
			continue
		}
		if err == nil {
			// Retries exhausted on a 5xx; surface the final code.
			return code, ctype, body, nil
		}
	}
	return 0, "", nil, lastErr
}

func (f *Fetcher) doGet(ctx context.Context, url string) (int, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en,en-US;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, "", nil, fmt.Errorf("page get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return 0, "", nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

func (f *Fetcher) pageURL(slug string, english bool) string {
	if english {
		return f.baseURL + "/patent/" + slug + "/en"
	}
	return f.baseURL + "/patent/" + slug
}
