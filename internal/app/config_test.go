package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("unexpected RequestTimeout: %v", cfg.RequestTimeout)
	}
	if cfg.PhimAPIBaseURL != "https://phimapi.com" || cfg.OphimBaseURL != "https://ophim1.com" {
		t.Fatalf("unexpected provider URLs: %q %q", cfg.PhimAPIBaseURL, cfg.OphimBaseURL)
	}
	if cfg.SyncPageSize != 1000 || cfg.SyncChunkSize != 100 {
		t.Fatalf("unexpected sync sizes: %d %d", cfg.SyncPageSize, cfg.SyncChunkSize)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("SEARCH_CACHE_TTL_MINUTES", "30")
	t.Setenv("SEARCH_CACHE_DISABLED", "true")
	t.Setenv("SYNC_PAGE_SIZE", "250")

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Fatalf("unexpected CacheTTL: %v", cfg.CacheTTL)
	}
	if !cfg.CacheDisabled {
		t.Fatalf("expected cache disabled")
	}
	if cfg.SyncPageSize != 250 {
		t.Fatalf("unexpected SyncPageSize: %d", cfg.SyncPageSize)
	}
}

func TestGetEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("SYNC_PAGE_SIZE", "not-a-number")
	if cfg := LoadConfig(); cfg.SyncPageSize != 1000 {
		t.Fatalf("garbage value must fall back, got %d", cfg.SyncPageSize)
	}

	t.Setenv("SYNC_PAGE_SIZE", "-5")
	if cfg := LoadConfig(); cfg.SyncPageSize != 1000 {
		t.Fatalf("negative value must fall back, got %d", cfg.SyncPageSize)
	}
}
