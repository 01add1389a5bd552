package tokens

// Package tokens issues and verifies the access/refresh JWT pair
// returned by a successful exchange.

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/ports"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the payload embedded in both token types. Type
// distinguishes access from refresh so one can never stand in for the
// other.
type Claims struct {
	jwt.RegisteredClaims

	Type string          `json:"typ"`
	Role domainauth.Role `json:"rol,omitempty"`
}

// Issuer signs and verifies HS256 token pairs.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// IssuerConfig holds configuration for the token issuer.
type IssuerConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration // default 30m
	RefreshTTL time.Duration // default 7 days
}

// NewIssuer creates a token issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	accessTTL := cfg.AccessTTL
	if accessTTL == 0 {
		accessTTL = 30 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "savitara"
	}
	return &Issuer{
		secret:     []byte(cfg.Secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// IssueAccess creates a signed access token carrying the user's role.
func (i *Issuer) IssueAccess(userID string, role domainauth.Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type: tokenTypeAccess,
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefresh creates a signed refresh token with a unique jti so
// logout can denylist it.
func (i *Issuer) IssueRefresh(userID string) (string, ports.RefreshClaims, error) {
	now := time.Now()
	expiresAt := now.Add(i.refreshTTL)
	tokenID := uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type: tokenTypeRefresh,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", ports.RefreshClaims{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, ports.RefreshClaims{UserID: userID, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// VerifyAccess checks an access token's signature and validity.
func (i *Issuer) VerifyAccess(token string) (ports.AccessClaims, error) {
	claims, err := i.verify(token, tokenTypeAccess)
	if err != nil {
		return ports.AccessClaims{}, err
	}
	return ports.AccessClaims{
		UserID:    claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyRefresh checks a refresh token's signature and validity.
func (i *Issuer) VerifyRefresh(token string) (ports.RefreshClaims, error) {
	claims, err := i.verify(token, tokenTypeRefresh)
	if err != nil {
		return ports.RefreshClaims{}, err
	}
	return ports.RefreshClaims{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (i *Issuer) verify(token, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("token is not an %s token", wantType)
	}
	return claims, nil
}
