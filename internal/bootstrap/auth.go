package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/savitara/savitara-api/config"
	"github.com/savitara/savitara-api/internal/adapters/devauth"
	"github.com/savitara/savitara-api/internal/adapters/oidc"
	redisadapter "github.com/savitara/savitara-api/internal/adapters/redis"
	"github.com/savitara/savitara-api/internal/adapters/tokens"
	"github.com/savitara/savitara-api/internal/data"
	"github.com/savitara/savitara-api/internal/observability/statsd"
	"github.com/savitara/savitara-api/internal/ports"
	"github.com/savitara/savitara-api/internal/service"
)

// AuthConfig contains dependencies for building the auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// AuthServices bundles the auth service with the token issuer the HTTP
// layer needs for bearer verification.
type AuthServices struct {
	Auth   *service.AuthService
	Tokens ports.TokenIssuer
}

// BuildAuthService wires the auth service for the configured auth mode.
func BuildAuthService(cfg AuthConfig) (*AuthServices, error) {
	provider, err := buildIdentityProvider(cfg)
	if err != nil {
		return nil, err
	}

	issuer, err := tokens.NewIssuer(tokens.IssuerConfig{
		Secret:     cfg.Auth.Token.Secret,
		Issuer:     cfg.Auth.Token.Issuer,
		AccessTTL:  cfg.Auth.Token.AccessTTL,
		RefreshTTL: cfg.Auth.Token.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("build token issuer: %w", err)
	}

	svc := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Pending:  redisadapter.NewPendingStoreWithTTL(cfg.RedisClient, cfg.Auth.PendingTTL),
		Sessions: redisadapter.NewSessionStore(cfg.RedisClient),
		Users:    data.NewUserRepo(cfg.DB),
		Tokens:   issuer,
		Revoked:  redisadapter.NewRevocationStore(cfg.RedisClient),
		Paths: service.NavigationPaths{
			Home:       cfg.Auth.HomePath,
			Onboarding: cfg.Auth.OnboardingPath,
		},
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})

	return &AuthServices{Auth: svc, Tokens: issuer}, nil
}

//nolint:ireturn // the provider is chosen by auth mode at runtime.
func buildIdentityProvider(cfg AuthConfig) (ports.IdentityProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			Subject: cfg.Auth.DevAuth.Subject,
			Email:   cfg.Auth.DevAuth.Email,
			Name:    cfg.Auth.DevAuth.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev auth provider: %w", err)
		}
		if cfg.Logger != nil {
			cfg.Logger.Warn("mock auth mode enabled; do not use in production",
				"email", cfg.Auth.DevAuth.Email)
		}
		return prov, nil

	case config.AuthModeOAuth:
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.Auth.Google.ClientID,
			ClientSecret: cfg.Auth.Google.ClientSecret,
			RedirectURL:  cfg.Auth.Google.RedirectURL,
			Scope:        cfg.Auth.Google.Scope,
		})
		if err != nil {
			return nil, fmt.Errorf("build google provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
