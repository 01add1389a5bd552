package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
	mocks "github.com/savitara/savitara-api/internal/mocks/auth"
	"github.com/savitara/savitara-api/internal/ports"
)

// testDeps bundles the doubles wired into an AuthService under test.
type testDeps struct {
	provider *mocks.MockIdentityProvider
	pending  *mocks.MemoryPendingStore
	sessions *mocks.MemorySessionStore
	users    *mocks.MemoryUserRepo
	tokens   *mocks.StubTokenIssuer
	revoked  *mocks.MemoryTokenRevoker
}

func newTestAuthService(t *testing.T) (*AuthService, *testDeps) {
	t.Helper()
	deps := &testDeps{
		provider: mocks.NewMockIdentityProvider(),
		pending:  mocks.NewMemoryPendingStore(),
		sessions: mocks.NewMemorySessionStore(),
		users:    mocks.NewMemoryUserRepo(),
		tokens:   mocks.NewStubTokenIssuer(),
		revoked:  mocks.NewMemoryTokenRevoker(),
	}
	svc := NewAuthService(AuthServiceOptions{
		Provider: deps.provider,
		Pending:  deps.pending,
		Sessions: deps.sessions,
		Users:    deps.users,
		Tokens:   deps.tokens,
		Revoked:  deps.revoked,
	})
	return svc, deps
}

// mockSessionStore is a test helper for testing session store errors.
type mockSessionStore struct {
	saveFunc   func(context.Context, domainauth.Session) error
	getFunc    func(context.Context, string) (domainauth.Session, error)
	deleteFunc func(context.Context, string) error
}

func (m *mockSessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, sess)
	}
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return domainauth.Session{}, ports.ErrSessionNotFound
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func TestNewAuthService_DefaultPaths(t *testing.T) {
	svc, _ := newTestAuthService(t)

	assert.Equal(t, "/", svc.paths.Home)
	assert.Equal(t, "/onboarding", svc.paths.Onboarding)
}

func TestAuthService_BeginGoogleLogin_Success(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})

	require.NoError(t, err)
	assert.NotEmpty(t, result.FlowID)
	assert.True(t, result.NeedsRoleSelection)
	assert.Equal(t, "mock.user@example.com", result.UserEmail)

	// The credential is parked, not exchanged: no session, no user yet.
	assert.Equal(t, 0, deps.sessions.Len())
	pending, getErr := deps.pending.Get(ctx, result.FlowID)
	require.NoError(t, getErr)
	assert.Equal(t, domainauth.FlowAwaitingRoleSelection, pending.State)
}

func TestAuthService_BeginGoogleLogin_EmptyToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	result, err := svc.BeginGoogleLogin(context.Background(), BeginGoogleLoginInput{})

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestAuthService_BeginGoogleLogin_ProviderErrorKindPreserved(t *testing.T) {
	svc, deps := newTestAuthService(t)
	deps.provider.VerifyFunc = func(context.Context, string) (domainauth.Credential, error) {
		return domainauth.Credential{}, domainauth.NewProviderError(
			domainauth.ProviderPopupBlocked, errors.New("popup_blocked_by_browser"))
	}

	result, err := svc.BeginGoogleLogin(context.Background(), BeginGoogleLoginInput{IDToken: "tok"})

	require.Error(t, err)
	assert.Nil(t, result)

	var perr *domainauth.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domainauth.ProviderPopupBlocked, perr.Kind)

	// Nothing parked and nothing established after a provider failure.
	assert.Equal(t, 0, deps.pending.Len())
	assert.Equal(t, 0, deps.sessions.Len())
}

func TestAuthService_BeginGoogleLogin_RejectsConcurrentFlow(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	// A redirect flow is mid-provider for this flow ID.
	redirect, err := svc.BeginGoogleRedirect(ctx, BeginGoogleRedirectInput{})
	require.NoError(t, err)

	_, err = svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{
		FlowID:  redirect.FlowID,
		IDToken: "raw-id-token",
	})

	require.ErrorIs(t, err, ErrLoginInFlight)
	var perr *domainauth.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domainauth.ProviderConcurrentRequest, perr.Kind)

	// The in-flight redirect flow is untouched.
	pending, getErr := deps.pending.Get(ctx, redirect.FlowID)
	require.NoError(t, getErr)
	assert.Equal(t, domainauth.FlowAwaitingProvider, pending.State)
}

func TestAuthService_BeginGoogleLogin_OverwritesAwaitingRoleSelection(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "first-token"})
	require.NoError(t, err)

	// Same flow signs in again before choosing a role; the later
	// credential wins and only one pending entry remains.
	deps.provider.DefaultCredential.Email = "second.user@example.com"
	deps.provider.DefaultCredential.Subject = "google-sub-2"

	second, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{
		FlowID:  first.FlowID,
		IDToken: "second-token",
	})
	require.NoError(t, err)
	assert.Equal(t, first.FlowID, second.FlowID)
	assert.Equal(t, 1, deps.pending.Len())

	pending, err := deps.pending.Get(ctx, first.FlowID)
	require.NoError(t, err)
	assert.Equal(t, "second.user@example.com", pending.Credential.Email)
}

func TestAuthService_CompleteGoogleLogin_NewUser(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	result, err := svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Session.ID)
	assert.NotEmpty(t, result.Session.AccessToken)
	assert.NotEmpty(t, result.Session.RefreshToken)

	user := result.Session.User
	assert.Equal(t, "mock.user@example.com", user.Email)
	assert.Equal(t, domainauth.RoleGrihasta, user.Role)
	assert.Equal(t, string(model.UserStatusPending), user.Status)
	assert.Equal(t, model.WelcomeCredits, user.Credits)
	assert.True(t, user.IsNewUser)
	assert.False(t, user.Onboarded)

	// New accounts are routed to onboarding, replacing history.
	assert.Equal(t, "/onboarding", result.Navigation.Path)
	assert.True(t, result.Navigation.Replace)

	// The session record was persisted whole.
	stored, err := deps.sessions.Get(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Session.AccessToken, stored.AccessToken)
	assert.Equal(t, result.Session.RefreshToken, stored.RefreshToken)
}

func TestAuthService_CompleteGoogleLogin_ExistingOnboardedUser(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	deps.users.Seed(&model.User{
		ID:     "user-77",
		Email:  "mock.user@example.com",
		Name:   "Mock User",
		Role:   domainauth.RoleAcharya,
		Status: model.UserStatusActive,
	})
	deps.users.SetOnboarded("user-77")

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	// The role choice does not reassign an existing account's role.
	result, err := svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})

	require.NoError(t, err)
	assert.Equal(t, "user-77", result.Session.User.ID)
	assert.Equal(t, domainauth.RoleAcharya, result.Session.User.Role)
	assert.False(t, result.Session.User.IsNewUser)
	assert.True(t, result.Session.User.Onboarded)
	assert.Equal(t, "/", result.Navigation.Path)
	assert.True(t, result.Navigation.Replace)

	// Provider-derived fields were refreshed on the stored record.
	stored, err := deps.users.GetByID(ctx, "user-77")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", stored.GoogleID)
	assert.NotNil(t, stored.LastLogin)
}

func TestAuthService_CompleteGoogleLogin_CredentialIsSingleUse(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.NoError(t, err)

	// A second completion finds nothing to exchange.
	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.ErrorIs(t, err, ErrNoPendingAuth)
}

func TestAuthService_CompleteGoogleLogin_ConsumedEvenOnFailure(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	deps.users.Seed(&model.User{
		ID:     "user-9",
		Email:  "mock.user@example.com",
		Role:   domainauth.RoleGrihasta,
		Status: model.UserStatusSuspended,
	})

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.Error(t, err)

	// The failed attempt still consumed the credential; a retry must
	// restart from the beginning.
	assert.Equal(t, 0, deps.pending.Len())
	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.ErrorIs(t, err, ErrNoPendingAuth)
}

func TestAuthService_CompleteGoogleLogin_NoPending(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.CompleteGoogleLogin(context.Background(), CompleteGoogleLoginInput{
		FlowID: "unknown-flow",
		Role:   domainauth.RoleGrihasta,
	})

	require.ErrorIs(t, err, ErrNoPendingAuth)
}

func TestAuthService_CompleteGoogleLogin_InvalidRoleDoesNotConsume(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.Role("admin"),
	})
	require.Error(t, err)

	// Role validation happens before the destructive take; the
	// credential survives for a corrected retry.
	assert.Equal(t, 1, deps.pending.Len())
	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleAcharya,
	})
	require.NoError(t, err)
}

func TestAuthService_CompleteGoogleLogin_UnverifiedEmail(t *testing.T) {
	svc, deps := newTestAuthService(t)
	deps.provider.DefaultCredential.EmailVerified = false
	ctx := context.Background()

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})

	require.Error(t, err)
	assert.Equal(t, 0, deps.sessions.Len())
}

func TestAuthService_CompleteGoogleLogin_SessionSaveFailureMeansNoLogin(t *testing.T) {
	svc, deps := newTestAuthService(t)
	svc.sessions = &mockSessionStore{
		saveFunc: func(context.Context, domainauth.Session) error {
			return errors.New("redis down")
		},
	}
	ctx := context.Background()

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	result, err := svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, deps.sessions.Len())
}

func TestAuthService_CancelGoogleLogin(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)

	require.NoError(t, svc.CancelGoogleLogin(ctx, begin.FlowID))

	// No exchange happened and the flow is back to idle.
	assert.Equal(t, 0, deps.pending.Len())
	assert.Equal(t, 0, deps.sessions.Len())
	_, err = svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.ErrorIs(t, err, ErrNoPendingAuth)
}

func TestAuthService_RedirectFlow_RoundTrip(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	redirect, err := svc.BeginGoogleRedirect(ctx, BeginGoogleRedirectInput{
		RedirectURL: "https://app.savitara.in/auth/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", redirect.AuthURL)

	// The provider redirects back; the held flow resumes without a
	// fresh user click.
	recovered, err := svc.RecoverPendingCredential(ctx, RecoverPendingCredentialInput{
		FlowID: redirect.FlowID,
		Code:   "auth-code",
		State:  "state-1",
	})
	require.NoError(t, err)
	assert.True(t, recovered.NeedsRoleSelection)
	assert.Equal(t, "mock.user@example.com", recovered.UserEmail)

	result, err := svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: redirect.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.NoError(t, err)
	assert.Equal(t, "/onboarding", result.Navigation.Path)
}

func TestAuthService_RecoverPendingCredential_StateMismatch(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	redirect, err := svc.BeginGoogleRedirect(ctx, BeginGoogleRedirectInput{})
	require.NoError(t, err)

	_, err = svc.RecoverPendingCredential(ctx, RecoverPendingCredentialInput{
		FlowID: redirect.FlowID,
		Code:   "auth-code",
		State:  "forged-state",
	})

	require.Error(t, err)
	// The forged callback burned the flow.
	assert.Equal(t, 0, deps.pending.Len())
}

func TestAuthService_RecoverPendingCredential_NothingHeld(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.RecoverPendingCredential(context.Background(), RecoverPendingCredentialInput{
		FlowID: "unknown-flow",
		Code:   "auth-code",
		State:  "state-1",
	})

	require.ErrorIs(t, err, ErrNoPendingAuth)
}

func TestAuthService_RecoverPendingCredential_ExchangeFailureResetsFlow(t *testing.T) {
	svc, deps := newTestAuthService(t)
	deps.provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Credential, error) {
		return domainauth.Credential{}, domainauth.NewProviderError(
			domainauth.ProviderNetworkFailure, errors.New("dial tcp: timeout"))
	}
	ctx := context.Background()

	redirect, err := svc.BeginGoogleRedirect(ctx, BeginGoogleRedirectInput{})
	require.NoError(t, err)

	_, err = svc.RecoverPendingCredential(ctx, RecoverPendingCredentialInput{
		FlowID: redirect.FlowID,
		Code:   "auth-code",
		State:  "state-1",
	})

	var perr *domainauth.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domainauth.ProviderNetworkFailure, perr.Kind)
	assert.Equal(t, 0, deps.pending.Len())
}

func TestAuthService_GetSession(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	begin, err := svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{IDToken: "raw-id-token"})
	require.NoError(t, err)
	result, err := svc.CompleteGoogleLogin(ctx, CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Session.User.Email, got.User.Email)
}

func TestAuthService_GetSession_Expired(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, deps.sessions.Save(ctx, domainauth.Session{
		ID:        "sess-old",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := svc.GetSession(ctx, "sess-old")
	require.ErrorIs(t, err, ErrSessionExpired)

	_, err = svc.GetSession(ctx, "sess-missing")
	require.ErrorIs(t, err, ErrSessionExpired)
}
