package config

import "testing"

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hms")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default env should be development")
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool sizes = %d/%d, want 20/5", cfg.DBMaxConns, cfg.DBMinConns)
	}
}

func TestValidateProductionNeedsAuth(t *testing.T) {
	cfg := &Config{Env: "production"}
	if err := cfg.Validate(); err == nil {
		t.Error("production config without auth source should be rejected")
	}

	cfg.AuthHMACKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("HMAC key should satisfy validation: %v", err)
	}
}
