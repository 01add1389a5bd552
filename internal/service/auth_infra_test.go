package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
	"github.com/savitara/savitara-api/internal/mocks"
	authmocks "github.com/savitara/savitara-api/internal/mocks/auth"
	"github.com/savitara/savitara-api/internal/ports"
	"go.uber.org/mock/gomock"
)

// These tests use gomock doubles to exercise infrastructure failure
// paths that the in-memory doubles cannot simulate.

func newInfraTestService(t *testing.T, users ports.UserRepository) (*AuthService, *testDeps) {
	t.Helper()
	deps := &testDeps{
		provider: authmocks.NewMockIdentityProvider(),
		pending:  authmocks.NewMemoryPendingStore(),
		sessions: authmocks.NewMemorySessionStore(),
		tokens:   authmocks.NewStubTokenIssuer(),
		revoked:  authmocks.NewMemoryTokenRevoker(),
	}
	svc := NewAuthService(AuthServiceOptions{
		Provider: deps.provider,
		Pending:  deps.pending,
		Sessions: deps.sessions,
		Users:    users,
		Tokens:   deps.tokens,
		Revoked:  deps.revoked,
	})
	return svc, deps
}

func TestLoginWithPassword_RepositoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockUsers.EXPECT().
		GetByEmail(gomock.Any(), "user@example.com").
		Return(nil, errors.New("connection refused"))

	svc, _ := newInfraTestService(t, mockUsers)

	_, err := svc.LoginWithPassword(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "whatever1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "look up user")
}

func TestCompleteGoogleLogin_ProfileLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockUsers.EXPECT().
		GetByEmail(gomock.Any(), gomock.Any()).
		Return(nil, ports.ErrUserNotFound)
	mockUsers.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&model.User{ID: "user-1", Email: "mock.user@example.com", Role: domainauth.RoleGrihasta}, nil)
	mockUsers.EXPECT().
		HasProfile(gomock.Any(), "user-1", domainauth.RoleGrihasta).
		Return(false, errors.New("query timeout"))

	svc, _ := newInfraTestService(t, mockUsers)

	begin, err := svc.BeginGoogleLogin(context.Background(), BeginGoogleLoginInput{IDToken: "token"})
	require.NoError(t, err)

	_, err = svc.CompleteGoogleLogin(context.Background(), CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check onboarding profile")
}

func TestCompleteGoogleLogin_BeginDuringExchangeRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var svc *AuthService
	var flowID string
	var beginErr error

	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockUsers.EXPECT().
		GetByEmail(gomock.Any(), gomock.Any()).
		Return(nil, ports.ErrUserNotFound)
	mockUsers.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&model.User{ID: "user-1", Email: "mock.user@example.com", Role: domainauth.RoleGrihasta}, nil)
	mockUsers.EXPECT().
		HasProfile(gomock.Any(), "user-1", domainauth.RoleGrihasta).
		DoAndReturn(func(ctx context.Context, _ string, _ domainauth.Role) (bool, error) {
			// A begin reusing the flow ID while the exchange is still
			// running must be turned away, not queued behind it.
			_, beginErr = svc.BeginGoogleLogin(ctx, BeginGoogleLoginInput{
				IDToken: "token",
				FlowID:  flowID,
			})
			return true, nil
		})

	svc, deps := newInfraTestService(t, mockUsers)

	begin, err := svc.BeginGoogleLogin(context.Background(), BeginGoogleLoginInput{IDToken: "token"})
	require.NoError(t, err)
	flowID = begin.FlowID

	_, err = svc.CompleteGoogleLogin(context.Background(), CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleGrihasta,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, beginErr, ErrLoginInFlight)

	// The exchanging marker is cleared once the attempt resolves.
	assert.Zero(t, deps.pending.Len())
}

func TestCompleteGoogleLogin_RecordLoginFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	existing := &model.User{
		ID:     "user-7",
		Email:  "mock.user@example.com",
		Role:   domainauth.RoleAcharya,
		Status: model.UserStatusActive,
	}
	mockUsers := mocks.NewMockUserRepository(ctrl)
	mockUsers.EXPECT().
		GetByEmail(gomock.Any(), gomock.Any()).
		Return(existing, nil)
	mockUsers.EXPECT().
		RecordGoogleLogin(gomock.Any(), "user-7", gomock.Any(), gomock.Any()).
		Return(errors.New("write failed"))

	svc, _ := newInfraTestService(t, mockUsers)

	begin, err := svc.BeginGoogleLogin(context.Background(), BeginGoogleLoginInput{IDToken: "token"})
	require.NoError(t, err)

	_, err = svc.CompleteGoogleLogin(context.Background(), CompleteGoogleLoginInput{
		FlowID: begin.FlowID,
		Role:   domainauth.RoleAcharya,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record google login")
}
