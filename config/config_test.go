package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAuthModeUnmarshalText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    AuthMode
		expectError bool
	}{
		{name: "oauth", input: "oauth", expected: AuthModeOAuth},
		{name: "mock", input: "mock", expected: AuthModeMock},
		{name: "uppercase", input: "OAUTH", expected: AuthModeOAuth},
		{name: "invalid", input: "saml", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mode AuthMode
			err := mode.UnmarshalText([]byte(tt.input))
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for input %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mode != tt.expected {
				t.Errorf("got %q, want %q", mode, tt.expected)
			}
		})
	}
}

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeOAuth {
		t.Errorf("default auth mode = %q, want oauth", cfg.Auth.Mode)
	}
	if cfg.Auth.Token.AccessTTL != 30*time.Minute {
		t.Errorf("default access TTL = %v, want 30m", cfg.Auth.Token.AccessTTL)
	}
	if cfg.Auth.Token.RefreshTTL != 168*time.Hour {
		t.Errorf("default refresh TTL = %v, want 168h", cfg.Auth.Token.RefreshTTL)
	}
	if cfg.Auth.HomePath != "/" || cfg.Auth.OnboardingPath != "/onboarding" {
		t.Errorf("default paths = %q, %q", cfg.Auth.HomePath, cfg.Auth.OnboardingPath)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("default addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if !cfg.Postgres.RunMigrationsOnStart {
		t.Error("migrations should run on start by default")
	}
}

func TestAppConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "mock")
	t.Setenv("AUTH_ALLOWED_ORIGINS", "https://savitara.in;https://staging.savitara.in")
	t.Setenv("DB_NAME", "savitara_test")
	t.Setenv("TOKEN_ACCESS_TTL", "15m")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeMock {
		t.Errorf("auth mode = %q, want mock", cfg.Auth.Mode)
	}
	if len(cfg.Auth.AllowedOrigins) != 2 {
		t.Errorf("allowed origins = %v, want 2 entries", cfg.Auth.AllowedOrigins)
	}
	if cfg.Postgres.Name != "savitara_test" {
		t.Errorf("db name = %q", cfg.Postgres.Name)
	}
	if cfg.Auth.Token.AccessTTL != 15*time.Minute {
		t.Errorf("access TTL = %v, want 15m", cfg.Auth.Token.AccessTTL)
	}
}

func TestAuthConfigSanitize(t *testing.T) {
	a := AuthConfig{PendingTTL: -time.Minute, LoginBurst: 0, LoginRatePerSecond: -1}
	a.Sanitize()

	if a.PendingTTL != 10*time.Minute {
		t.Errorf("pending TTL = %v, want 10m", a.PendingTTL)
	}
	if a.LoginBurst != 1 {
		t.Errorf("login burst = %d, want 1", a.LoginBurst)
	}
	if a.LoginRatePerSecond != 0 {
		t.Errorf("login rate = %v, want 0", a.LoginRatePerSecond)
	}
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Error("NODE_ENV=development should enable dev mode")
	}
}

func TestMetricsConfigSanitize(t *testing.T) {
	cfg := MetricsConfig{Enabled: true, StatsdAddress: " "}
	cfg.Sanitize()
	if cfg.IsEnabled() {
		t.Error("metrics should be disabled when address is blank")
	}

	cfg = MetricsConfig{Enabled: true, StatsdAddress: " statsd:8125 "}
	cfg.Sanitize()
	if !cfg.IsEnabled() {
		t.Error("metrics should stay enabled with a valid address")
	}
	if cfg.StatsdAddress != "statsd:8125" {
		t.Errorf("address = %q, want trimmed", cfg.StatsdAddress)
	}
}
