package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default = %q", cfg.HTTPAddr)
	}
	if cfg.DatabasePath != "pos.db" {
		t.Fatalf("DatabasePath default = %q", cfg.DatabasePath)
	}
	if !cfg.AllowNegativeStock {
		t.Fatalf("AllowNegativeStock should default to true")
	}
	if cfg.AuthTokenTTL != 12*time.Hour {
		t.Fatalf("AuthTokenTTL default = %v", cfg.AuthTokenTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9191")
	t.Setenv("ALLOW_NEGATIVE_STOCK", "false")
	t.Setenv("AUTH_TOKEN_TTL", "30m")

	cfg := Load()
	if cfg.HTTPAddr != ":9191" {
		t.Fatalf("HTTPAddr = %q, want :9191", cfg.HTTPAddr)
	}
	if cfg.AllowNegativeStock {
		t.Fatalf("ALLOW_NEGATIVE_STOCK=false not honored")
	}
	if cfg.AuthTokenTTL != 30*time.Minute {
		t.Fatalf("AuthTokenTTL = %v, want 30m", cfg.AuthTokenTTL)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("ALLOW_NEGATIVE_STOCK", "maybe")
	t.Setenv("AUTH_TOKEN_TTL", "soon")

	cfg := Load()
	if !cfg.AllowNegativeStock {
		t.Fatalf("unparseable bool should fall back to default")
	}
	if cfg.AuthTokenTTL != 12*time.Hour {
		t.Fatalf("unparseable duration should fall back to default")
	}
}
