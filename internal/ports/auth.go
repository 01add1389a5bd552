package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
)

// Sentinel errors shared by port implementations so orchestration can
// branch on them without knowing the backing store.
var (
	// ErrNoPending is returned when no credential is awaiting role
	// selection for the given flow.
	ErrNoPending = errors.New("no pending auth")
	// ErrSessionNotFound is returned when a session does not exist or
	// has expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// BeginInput carries inputs for initiating a redirect-mode sign-in.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the authorization-code exchange
// on the redirect return path.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// IdentityProvider wraps a third-party identity provider's sign-in
// primitives. Two strategies exist per sign-in: the popup path, where
// the client already holds a provider ID token and the server only
// verifies it, and the redirect path, where the server drives the
// authorization-code round trip.
type IdentityProvider interface {
	// VerifyIDToken verifies a provider-issued ID token (popup path)
	// and maps its claims to a Credential.
	VerifyIDToken(ctx context.Context, rawToken string) (domainauth.Credential, error)

	// Begin starts the redirect flow and returns the provider auth URL,
	// an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the redirect flow, verifying state and nonce,
	// and returns the verified Credential.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Credential, error)
}

// PendingAuthStore holds at most one awaiting-role-selection credential
// per flow. Put is last-write-wins; Take is a destructive read so a
// credential cannot be exchanged twice.
type PendingAuthStore interface {
	Put(ctx context.Context, pending domainauth.PendingAuth) error
	Get(ctx context.Context, flowID string) (domainauth.PendingAuth, error)
	Take(ctx context.Context, flowID string) (domainauth.PendingAuth, error)
	Delete(ctx context.Context, flowID string) error
}

// SessionStore persists and retrieves authenticated sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository persists Savitara accounts and role profiles.
type UserRepository interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// RecordGoogleLogin refreshes provider-derived fields and the
	// last_login timestamp for an existing Google sign-in.
	RecordGoogleLogin(ctx context.Context, id, googleID, picture string) error

	// TouchLastLogin updates last_login for a password sign-in.
	TouchLastLogin(ctx context.Context, id string) error

	// HasProfile reports whether the role-specific onboarding profile
	// exists; its existence is what "onboarded" means.
	HasProfile(ctx context.Context, userID string, role domainauth.Role) (bool, error)
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID    string
	Role      domainauth.Role
	ExpiresAt time.Time
}

// RefreshClaims are the verified contents of a refresh token. TokenID
// is the jti used for the logout denylist.
type RefreshClaims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer issues and verifies the access/refresh token pair.
type TokenIssuer interface {
	IssueAccess(userID string, role domainauth.Role) (token string, expiresAt time.Time, err error)
	IssueRefresh(userID string) (token string, claims RefreshClaims, err error)
	VerifyAccess(token string) (AccessClaims, error)
	VerifyRefresh(token string) (RefreshClaims, error)
}

// TokenRevoker records refresh tokens invalidated by logout until
// their natural expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
