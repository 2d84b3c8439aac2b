package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WALLET_API_URL", "http://localhost:9000/api/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WalletAPIURL != "http://localhost:9000/api" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.WalletAPIURL)
	}
	if cfg.SessionTTL != defaultSessionTTL {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
	if !cfg.IsDev() {
		t.Fatal("expected development env by default")
	}
}

func TestLoadDurationForms(t *testing.T) {
	t.Setenv("WALLET_API_URL", "https://wallet.example.com")
	t.Setenv("QUERY_CACHE_TTL_SECONDS", "5")
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("MAX_SESSIONS", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QueryCacheTTL != 5*time.Second {
		t.Fatalf("expected 5s cache ttl, got %s", cfg.QueryCacheTTL)
	}
	if cfg.SessionTTL != 90*time.Second {
		t.Fatalf("expected 90s session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.MaxSessions != 12 {
		t.Fatalf("expected 12 sessions, got %d", cfg.MaxSessions)
	}
}

func TestLoadRejectsMissingOrInvalidURL(t *testing.T) {
	t.Setenv("WALLET_API_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without WALLET_API_URL")
	}

	t.Setenv("WALLET_API_URL", "not a url")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid WALLET_API_URL")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("WALLET_API_URL", "https://wallet.example.com")
	t.Setenv("WALLET_API_TIMEOUT_SECONDS", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}
