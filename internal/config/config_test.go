package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Port)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("session ttl = %v, want 168h", cfg.SessionTTL)
	}
	if cfg.FrontendURL != "http://localhost:5173" {
		t.Fatalf("frontend url = %q", cfg.FrontendURL)
	}
	if cfg.RedisURL == "" || cfg.DatabaseURL == "" {
		t.Fatal("storage urls should have defaults")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Port != 9999 {
		t.Fatalf("port = %d, want 9999", cfg.Port)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("session ttl = %v, want 30m", cfg.SessionTTL)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("missing JWT_SECRET should fail validation")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("unparsable PORT should fail")
	}

	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("unparsable SESSION_TTL should fail")
	}
}
