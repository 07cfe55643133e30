package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GNET_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "gnet.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.EmailBackend != "log" {
		t.Errorf("email backend = %q, want log", cfg.EmailBackend)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != cfg.FrontendURL {
		t.Errorf("allowed origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadRequiresResetSecret(t *testing.T) {
	t.Setenv("GNET_DEBUG", "")
	t.Setenv("GNET_RESET_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without reset secret outside debug mode")
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("GNET_DEBUG", "true")
	t.Setenv("GNET_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("origins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "https://staging.example.com" {
		t.Errorf("second origin = %q", cfg.AllowedOrigins[1])
	}
}

func TestLoadPostmarkRequiresToken(t *testing.T) {
	t.Setenv("GNET_DEBUG", "true")
	t.Setenv("GNET_EMAIL_BACKEND", "postmark")
	t.Setenv("GNET_POSTMARK_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Error("expected error for postmark backend without token")
	}
}
