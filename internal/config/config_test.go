package config

import (
	"testing"
	"time"
)

func TestLoadClientConfig_Defaults(t *testing.T) {
	cfg, err := LoadClientConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("expected 30s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.TypingMin != time.Second || cfg.TypingMax != 3*time.Second || cfg.TypingPerRune != 15*time.Millisecond {
		t.Fatalf("unexpected typing defaults: %+v", cfg)
	}
	if cfg.WorkoutsRecheckDelay != 500*time.Millisecond || cfg.AuthRedirectDelay != 2*time.Second {
		t.Fatalf("unexpected delay defaults: %+v", cfg)
	}
}

func TestLoadClientConfig_Overrides(t *testing.T) {
	t.Setenv("COACH_API_URL", "http://coach.test")
	t.Setenv("COACH_USER_ID", "42")
	t.Setenv("COACH_POLL_INTERVAL", "5s")
	cfg, err := LoadClientConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://coach.test" || cfg.UserID != 42 || cfg.PollInterval != 5*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadServerConfig_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadServerConfig(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.JWTAccessTTLMinutes != 60 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
