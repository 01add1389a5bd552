package devauth

// Package devauth provides a simple, config-driven IdentityProvider for
// local development. It short-circuits the Google round trip and hands
// back a fixed identity for any token or code.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/ports"
)

// Config controls the dev provider identity.
type Config struct {
	Subject  string
	Email    string
	Name     string
	Lifetime time.Duration // default 1h when zero
}

// Provider implements ports.IdentityProvider for local development.
type Provider struct {
	credential domainauth.Credential
	lifetime   time.Duration
}

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Subject == "" {
		return nil, errors.New("devauth: Subject is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("devauth: Email is required")
	}
	lifetime := cfg.Lifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}
	return &Provider{
		credential: domainauth.Credential{
			Subject:       cfg.Subject,
			Email:         cfg.Email,
			EmailVerified: true,
			Name:          cfg.Name,
		},
		lifetime: lifetime,
	}, nil
}

// VerifyIDToken accepts any non-empty token and returns the configured identity.
func (p *Provider) VerifyIDToken(_ context.Context, rawToken string) (domainauth.Credential, error) {
	if rawToken == "" {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			errors.New("identity token is required"))
	}
	return p.fresh(), nil
}

// Begin returns a local callback URL with generated state and nonce.
// The standard callback handler expects GET /api/v1/auth/google/callback?code=...&state=...
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL := "/api/v1/auth/google/callback?code=dev&state=" + state
	return authURL, state, nonce, nil
}

// Exchange ignores the code (state validation is handled by the caller)
// and returns the configured identity.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Credential, error) {
	return p.fresh(), nil
}

func (p *Provider) fresh() domainauth.Credential {
	cred := p.credential
	cred.ExpiresAt = time.Now().Add(p.lifetime)
	return cred
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < n {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}
