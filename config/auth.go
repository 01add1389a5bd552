package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses Google OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// GoogleConfig contains Google OAuth/OIDC configuration.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL" envDefault:"http://localhost:8080/api/v1/auth/google/callback"`
	Scope        string `env:"SCOPE"        envDefault:"openid profile email"`
}

// DevAuthConfig controls the mock/dev sign-in identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Subject string `env:"SUBJECT" envDefault:"dev-google-sub"`
	Email   string `env:"EMAIL"   envDefault:"dev@example.com"`
	Name    string `env:"NAME"    envDefault:"Dev User"`
}

// TokenConfig contains JWT issuance settings.
type TokenConfig struct {
	// Secret signs access and refresh tokens. Required outside dev.
	Secret     string        `env:"SECRET"`
	Issuer     string        `env:"ISSUER"      envDefault:"savitara"`
	AccessTTL  time.Duration `env:"ACCESS_TTL"  envDefault:"30m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// Google configuration (used when Mode=oauth).
	Google GoogleConfig `envPrefix:"GOOGLE_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Token issuance settings.
	Token TokenConfig `envPrefix:"TOKEN_"`

	// PendingTTL bounds how long a sign-in may wait for a role choice.
	PendingTTL time.Duration `env:"AUTH_PENDING_TTL" envDefault:"10m"`

	// AllowedOrigins lists origins permitted to call the auth endpoints.
	AllowedOrigins []string `env:"AUTH_ALLOWED_ORIGINS" envSeparator:";"`

	// LoginRatePerSecond and LoginBurst cap sign-in attempts per IP.
	LoginRatePerSecond float64 `env:"AUTH_LOGIN_RATE"  envDefault:"2"`
	LoginBurst         int     `env:"AUTH_LOGIN_BURST" envDefault:"10"`

	// HomePath and OnboardingPath are the post-login navigation targets.
	HomePath       string `env:"AUTH_HOME_PATH"       envDefault:"/"`
	OnboardingPath string `env:"AUTH_ONBOARDING_PATH" envDefault:"/onboarding"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.PendingTTL <= 0 {
		a.PendingTTL = 10 * time.Minute
	}
	if a.LoginBurst < 1 {
		a.LoginBurst = 1
	}
	if a.LoginRatePerSecond < 0 {
		a.LoginRatePerSecond = 0
	}
}
