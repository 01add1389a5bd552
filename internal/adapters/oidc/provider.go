package oidc

// Package oidc provides the Google identity-provider adapter for the
// Savitara sign-in flows.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/ports"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the default issuer for Google-signed ID tokens.
const GoogleIssuer = "https://accounts.google.com"

// Provider implements ports.IdentityProvider against Google via
// OIDC/OAuth2. Both strategies share one verifier: the popup path only
// verifies a client-supplied ID token, the redirect path additionally
// drives the authorization-code round trip.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	mapper     *claimMapper

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the Google OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	IssuerURL    string       // defaults to GoogleIssuer
	Claims       ClaimMapping // zero value uses DefaultClaimMapping
	HTTPClient   *http.Client // optional; defaults to a 10s-timeout client
}

// NewProvider creates a new Google OIDC provider. Discovery runs once
// at construction; a failure here means the provider is misconfigured
// or unreachable and sign-in stays disabled.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No timeout is specified anywhere in the sign-in flow itself,
		// so the provider round trip carries one.
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = GoogleIssuer
	}
	issuer = strings.TrimSuffix(issuer, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	mapper, err := newClaimMapper(cfg.Claims)
	if err != nil {
		return nil, fmt.Errorf("compile claim mapping: %w", err)
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, domainauth.NewProviderError(domainauth.ProviderDisabled,
			fmt.Errorf("oidc discovery: %w", err))
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "openid email profile"
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		mapper:       mapper,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// VerifyIDToken verifies a client-supplied Google ID token (popup path)
// and maps its claims to a Credential.
func (p *Provider) VerifyIDToken(ctx context.Context, rawToken string) (domainauth.Credential, error) {
	if rawToken == "" {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			errors.New("identity token is required"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	idTok, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domainauth.Credential{}, classifyProviderError(err)
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			fmt.Errorf("parse id_token claims: %w", claimsErr))
	}

	return p.mapper.credential(claims, idTok.Expiry)
}

// Begin starts the redirect-mode flow and returns the provider auth
// URL with freshly generated state and nonce.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", in.RedirectURL))
	}

	return p.config.AuthCodeURL(state, opts...), state, nonce, nil
}

// Exchange completes the redirect-mode flow: authorization code →
// token → verified ID token → Credential. State equality is checked by
// the caller against its own stored state; the nonce is checked here
// against the ID token claim.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Credential, error) {
	if in.Code == "" {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			errors.New("authorization code is required"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Credential{}, classifyProviderError(err)
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			errors.New("missing id_token in token response"))
	}

	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Credential{}, classifyProviderError(err)
	}
	if in.Nonce != "" && idTok.Nonce != in.Nonce {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			errors.New("invalid nonce"))
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			fmt.Errorf("parse id_token claims: %w", claimsErr))
	}

	return p.mapper.credential(claims, idTok.Expiry)
}

// classifyProviderError folds transport-level failures into the
// NetworkFailure kind; everything else surfaces as Unknown with the
// raw message preserved.
func classifyProviderError(err error) error {
	var provErr *domainauth.ProviderError
	if errors.As(err, &provErr) {
		return provErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return domainauth.NewProviderError(domainauth.ProviderNetworkFailure, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case "access_denied":
			return domainauth.NewProviderError(domainauth.ProviderUserCancelled, err)
		case "unauthorized_client", "invalid_client":
			return domainauth.NewProviderError(domainauth.ProviderDisabled, err)
		}
	}

	return domainauth.NewProviderError(domainauth.ProviderUnknown, err)
}

// generateRandomString generates a cryptographically secure URL-safe
// random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
