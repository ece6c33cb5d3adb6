package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, expiresIn int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-key" || pass != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-abc",
			"expires_in":   expiresIn,
		})
	}))
}

func TestTokenSource_CachesUntilMargin(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, 3600, &calls)
	defer srv.Close()

	src := NewTokenSource(srv.URL, "test-key", "test-secret", 5*time.Second, nil)

	for i := 0; i < 3; i++ {
		tok, err := src.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "tok-abc" {
			t.Fatalf("token = %q", tok)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 exchange, got %d", n)
	}
}

func TestTokenSource_RefreshesNearExpiry(t *testing.T) {
	var calls int32
	// Lifetime below the safety margin: every acquisition must exchange.
	srv := newTokenServer(t, 10, &calls)
	defer srv.Close()

	src := NewTokenSource(srv.URL, "test-key", "test-secret", 5*time.Second, nil)

	for i := 0; i < 2; i++ {
		if _, err := src.Token(context.Background()); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 exchanges for a short-lived token, got %d", n)
	}
}

func TestTokenSource_ForceRefreshBypassesCache(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, 3600, &calls)
	defer srv.Close()

	src := NewTokenSource(srv.URL, "test-key", "test-secret", 5*time.Second, nil)

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := src.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}

	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected forced refresh to exchange again, got %d calls", n)
	}
}

func TestTokenSource_ConcurrentRefreshCoalesces(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-shared",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	src := NewTokenSource(srv.URL, "k", "s", 5*time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := src.Token(context.Background()); err != nil {
				t.Errorf("Token: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected concurrent acquisitions to share one exchange, got %d", n)
	}
}

func TestTokenSource_ExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewTokenSource(srv.URL, "k", "s", 5*time.Second, nil)
	if _, err := src.Token(context.Background()); err == nil {
		t.Fatal("expected error on failed exchange")
	}
}

func TestIsInvalidTokenResponse(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   bool
	}{
		{400, `{"error":"invalid_access_token"}`, true},
		{401, "Invalid Access Token", true},
		{401, "oauth.v2.InvalidAccessToken: expired", true},
		{401, "some other failure", false},
		{403, "invalid_access_token", false},
		{200, "invalid_access_token", false},
	}

	for _, tc := range cases {
		if got := IsInvalidTokenResponse(tc.status, tc.body); got != tc.want {
			t.Errorf("IsInvalidTokenResponse(%d, %q) = %v, want %v", tc.status, tc.body, got, tc.want)
		}
	}
}
