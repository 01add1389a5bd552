package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
	"github.com/savitara/savitara-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.PendingAuthStore = (*MemoryPendingStore)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
	_ ports.UserRepository   = (*MemoryUserRepo)(nil)
	_ ports.TokenIssuer      = (*StubTokenIssuer)(nil)
	_ ports.TokenRevoker     = (*MemoryTokenRevoker)(nil)
)

// MockIdentityProvider simulates Google for tests with deterministic
// state/nonce handling.
type MockIdentityProvider struct {
	VerifyFunc   func(ctx context.Context, rawToken string) (domainauth.Credential, error)
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Credential, error)

	// Deterministic values for predictable testing
	AuthURL           string
	DefaultCredential domainauth.Credential

	// Internal state tracking for deterministic behavior
	callCount int
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultCredential: domainauth.Credential{
			Subject:       "google-sub-1",
			Email:         "mock.user@example.com",
			EmailVerified: true,
			Name:          "Mock User",
			Picture:       "https://example.com/avatar.png",
			ExpiresAt:     time.Now().Add(time.Hour),
		},
	}
}

func (m *MockIdentityProvider) VerifyIDToken(ctx context.Context, rawToken string) (domainauth.Credential, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, rawToken)
	}
	if rawToken == "" {
		return domainauth.Credential{}, errors.New("empty token")
	}
	cred := m.DefaultCredential
	cred.ExpiresAt = time.Now().Add(time.Hour)
	return cred, nil
}

func (m *MockIdentityProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.callCount++
	return m.AuthURL, fmt.Sprintf("state-%d", m.callCount), fmt.Sprintf("nonce-%d", m.callCount), nil
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Credential, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	cred := m.DefaultCredential
	cred.ExpiresAt = time.Now().Add(time.Hour)
	return cred, nil
}

// MemoryPendingStore is an in-memory pending-auth store for unit tests.
// Like the Redis adapter, Put is last-write-wins and Take is a
// destructive read.
type MemoryPendingStore struct {
	pending map[string]domainauth.PendingAuth
}

// NewMemoryPendingStore creates a new in-memory pending-auth store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{pending: make(map[string]domainauth.PendingAuth)}
}

func (m *MemoryPendingStore) Put(_ context.Context, pending domainauth.PendingAuth) error {
	if pending.FlowID == "" {
		return errors.New("flow ID cannot be empty")
	}
	m.pending[pending.FlowID] = pending
	return nil
}

func (m *MemoryPendingStore) Get(_ context.Context, flowID string) (domainauth.PendingAuth, error) {
	p, ok := m.pending[flowID]
	if !ok {
		return domainauth.PendingAuth{}, ports.ErrNoPending
	}
	return p, nil
}

func (m *MemoryPendingStore) Take(_ context.Context, flowID string) (domainauth.PendingAuth, error) {
	p, ok := m.pending[flowID]
	if !ok {
		return domainauth.PendingAuth{}, ports.ErrNoPending
	}
	delete(m.pending, flowID)
	return p, nil
}

func (m *MemoryPendingStore) Delete(_ context.Context, flowID string) error {
	delete(m.pending, flowID)
	return nil
}

// Len reports how many flows currently hold pending state.
func (m *MemoryPendingStore) Len() int { return len(m.pending) }

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

// Len reports how many sessions are stored.
func (m *MemorySessionStore) Len() int { return len(m.sessions) }

// MemoryUserRepo is an in-memory user repository for unit tests.
type MemoryUserRepo struct {
	byID     map[string]*model.User
	byEmail  map[string]*model.User
	profiles map[string]bool // userID -> onboarding profile exists
	nextID   int
}

// NewMemoryUserRepo creates a new in-memory user repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:     make(map[string]*model.User),
		byEmail:  make(map[string]*model.User),
		profiles: make(map[string]bool),
	}
}

// Seed inserts a user directly, bypassing Create validation.
func (m *MemoryUserRepo) Seed(u *model.User) {
	m.byID[u.ID] = u
	m.byEmail[strings.ToLower(u.Email)] = u
}

// SetOnboarded marks the user's role profile as existing.
func (m *MemoryUserRepo) SetOnboarded(userID string) {
	m.profiles[userID] = true
}

func (m *MemoryUserRepo) Create(_ context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, exists := m.byEmail[email]; exists {
		return nil, errors.New("duplicate email")
	}
	m.nextID++
	now := time.Now().UTC()
	u := &model.User{
		ID:             fmt.Sprintf("user-%d", m.nextID),
		Email:          email,
		Name:           req.Name,
		PasswordHash:   req.PasswordHash,
		GoogleID:       req.GoogleID,
		Role:           req.Role,
		Status:         req.Status,
		Credits:        req.Credits,
		ProfilePicture: req.ProfilePicture,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.Seed(u)
	return u, nil
}

func (m *MemoryUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ports.ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ports.ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryUserRepo) RecordGoogleLogin(_ context.Context, id, googleID, picture string) error {
	u, ok := m.byID[id]
	if !ok {
		return ports.ErrUserNotFound
	}
	if googleID != "" {
		u.GoogleID = googleID
	}
	if picture != "" {
		u.ProfilePicture = picture
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

func (m *MemoryUserRepo) TouchLastLogin(_ context.Context, id string) error {
	u, ok := m.byID[id]
	if !ok {
		return ports.ErrUserNotFound
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

func (m *MemoryUserRepo) HasProfile(_ context.Context, userID string, _ domainauth.Role) (bool, error) {
	return m.profiles[userID], nil
}

// StubTokenIssuer issues predictable tokens of the form
// "access:<userID>" / "refresh:<userID>:<n>".
type StubTokenIssuer struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	counter    int
}

// NewStubTokenIssuer creates a StubTokenIssuer with hour-scale TTLs.
func NewStubTokenIssuer() *StubTokenIssuer {
	return &StubTokenIssuer{AccessTTL: 30 * time.Minute, RefreshTTL: 7 * 24 * time.Hour}
}

func (s *StubTokenIssuer) IssueAccess(userID string, role domainauth.Role) (string, time.Time, error) {
	return "access:" + userID + ":" + string(role), time.Now().Add(s.AccessTTL), nil
}

func (s *StubTokenIssuer) IssueRefresh(userID string) (string, ports.RefreshClaims, error) {
	s.counter++
	claims := ports.RefreshClaims{
		UserID:    userID,
		TokenID:   fmt.Sprintf("jti-%d", s.counter),
		ExpiresAt: time.Now().Add(s.RefreshTTL),
	}
	return fmt.Sprintf("refresh:%s:%d", userID, s.counter), claims, nil
}

func (s *StubTokenIssuer) VerifyAccess(token string) (ports.AccessClaims, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != "access" {
		return ports.AccessClaims{}, errors.New("malformed access token")
	}
	return ports.AccessClaims{
		UserID:    parts[1],
		Role:      domainauth.Role(parts[2]),
		ExpiresAt: time.Now().Add(s.AccessTTL),
	}, nil
}

func (s *StubTokenIssuer) VerifyRefresh(token string) (ports.RefreshClaims, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != "refresh" {
		return ports.RefreshClaims{}, errors.New("malformed refresh token")
	}
	return ports.RefreshClaims{
		UserID:    parts[1],
		TokenID:   "jti-" + parts[2],
		ExpiresAt: time.Now().Add(s.RefreshTTL),
	}, nil
}

// MemoryTokenRevoker is an in-memory refresh-token denylist.
type MemoryTokenRevoker struct {
	revoked map[string]time.Time
}

// NewMemoryTokenRevoker creates a new in-memory denylist.
func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{revoked: make(map[string]time.Time)}
}

func (m *MemoryTokenRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}
	m.revoked[tokenID] = until
	return nil
}

func (m *MemoryTokenRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	until, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return time.Now().Before(until), nil
}
