package config

import (
	"log/slog"
	"testing"
	"time"

	"storefront/apperr"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestMissingSecretIsConfigurationError(t *testing.T) {
	_, err := FromEnv(lookup(map[string]string{}))
	if !apperr.Is(err, apperr.Configuration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{"JWT_SECRET": "s3cret"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected token ttl %v", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("unexpected bcrypt cost %d", cfg.BcryptCost)
	}
	if cfg.MongoDB != "storefront" {
		t.Fatalf("unexpected db %q", cfg.MongoDB)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"JWT_SECRET":        "s3cret",
		"PORT":              "9000",
		"BCRYPT_COST":       "12",
		"CORS_ORIGINS":      "https://a.example, https://b.example",
		"SUMMARY_CACHE_TTL": "0s",
		"LOG_LEVEL":         "debug",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != ":9000" || cfg.BcryptCost != 12 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.SummaryCacheTTL != 0 {
		t.Fatalf("expected cache disabled, got %v", cfg.SummaryCacheTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
}

func TestBadBcryptCost(t *testing.T) {
	_, err := FromEnv(lookup(map[string]string{"JWT_SECRET": "x", "BCRYPT_COST": "99"}))
	if !apperr.Is(err, apperr.Configuration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
