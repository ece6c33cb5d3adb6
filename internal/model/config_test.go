package model

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Registry.BaseURL == "" || cfg.Registry.TokenURL == "" {
		t.Error("registry endpoints must have defaults")
	}
	if cfg.Registry.MaxRetries <= 0 {
		t.Error("retry ceiling must be positive")
	}
	if !cfg.Secondary.Enabled {
		t.Error("secondary fallback defaults on")
	}
	if cfg.Batch.Sleep <= 0 {
		t.Error("inter-request delay must default on")
	}
}

func TestCacheDirsAreDistinct(t *testing.T) {
	c := CacheConfig{Dir: "/tmp/ch"}
	dirs := []string{c.ClaimsDir(), c.FamilyDir(), c.SecondaryDir()}
	seen := map[string]bool{}
	for _, d := range dirs {
		if !strings.HasPrefix(d, "/tmp/ch") {
			t.Errorf("dir %s must live under the cache root", d)
		}
		if seen[d] {
			t.Errorf("duplicate cache dir %s", d)
		}
		seen[d] = true
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("OPS_KEY", "")
	t.Setenv("OPS_SECRET", "")
	t.Setenv("EPO_OPS_KEY", "")
	t.Setenv("EPO_OPS_SECRET", "")

	if _, err := LoadCredentials(); err == nil {
		t.Fatal("missing credentials must be a fatal configuration error")
	}

	t.Setenv("OPS_KEY", "k")
	t.Setenv("OPS_SECRET", "s")
	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.Key != "k" || creds.Secret != "s" {
		t.Errorf("creds = %+v", creds)
	}

	t.Setenv("OPS_KEY", "")
	t.Setenv("OPS_SECRET", "")
	t.Setenv("EPO_OPS_KEY", "ek")
	t.Setenv("EPO_OPS_SECRET", "es")
	creds, err = LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials alias: %v", err)
	}
	if creds.Key != "ek" || creds.Secret != "es" {
		t.Errorf("alias creds = %+v", creds)
	}
}
