package auth

// Package auth contains domain-level types for the Savitara sign-in flows.
// It is pure and free of framework/adapter concerns.

import "time"

// Role is the business-level user category, chosen exactly once per
// Google login by explicit user action. It is never defaulted or
// inferred from provider data.
type Role string

const (
	// RoleGrihasta is a service seeker.
	RoleGrihasta Role = "grihasta"
	// RoleAcharya is a service provider.
	RoleAcharya Role = "acharya"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleGrihasta || r == RoleAcharya
}

// FlowState tracks where a sign-in flow currently is in the two-step
// Google login. Transitions are owned by service.AuthService; adapters
// only persist the value.
type FlowState string

const (
	FlowIdle                  FlowState = "idle"
	FlowAwaitingProvider      FlowState = "awaiting_provider"
	FlowAwaitingRoleSelection FlowState = "awaiting_role_selection"
	FlowExchanging            FlowState = "exchanging"
	FlowAuthenticated         FlowState = "authenticated"
)

// Credential is the verified identity returned by the identity
// provider. It is transient: consumed exactly once during the role
// exchange and never persisted verbatim.
type Credential struct {
	Subject       string    `json:"subject"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Name          string    `json:"name"`
	Picture       string    `json:"picture"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PendingAuth is a credential held until the user picks a role. At
// most one exists per flow; a new credential arriving for the same
// flow overwrites it (last-write-wins, no queuing).
type PendingAuth struct {
	FlowID     string     `json:"flow_id"`
	Credential Credential `json:"credential"`
	State      FlowState  `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`

	// OAuthState and Nonce are set only while a redirect-mode flow is
	// in AwaitingProvider, between leaving for the provider and the
	// callback landing.
	OAuthState string `json:"oauth_state,omitempty"`
	Nonce      string `json:"nonce,omitempty"`
}

// EmailHint is the address shown next to the role selection prompt.
func (p PendingAuth) EmailHint() string { return p.Credential.Email }

// UserSummary is the user record as returned to clients after a
// successful exchange. Onboarded is derived from role-profile
// existence at exchange time, never from a cached value.
type UserSummary struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           Role   `json:"role"`
	Status         string `json:"status"`
	Credits        int    `json:"credits"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	IsNewUser      bool   `json:"is_new_user"`
	Onboarded      bool   `json:"onboarded"`
}

// Session is the server-side record persisted for an authenticated
// user. The access and refresh tokens are written and cleared
// together, never independently.
type Session struct {
	ID           string      `json:"id"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// NavigationTarget is the one-time navigation command issued after a
// successful exchange. Replace means the UI must overwrite the current
// history entry so the back button cannot return to the pre-auth page.
type NavigationTarget struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}
