package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
	apperrors "github.com/savitara/savitara-api/internal/errors"
	"github.com/savitara/savitara-api/internal/observability/metrics"
	"github.com/savitara/savitara-api/internal/observability/statsd"
	"github.com/savitara/savitara-api/internal/ports"
)

// NavigationPaths are the two terminal destinations of a successful
// sign-in. The choice between them is made once, synchronously after
// the exchange, from the freshly returned user record.
type NavigationPaths struct {
	Home       string
	Onboarding string
}

func (p NavigationPaths) withDefaults() NavigationPaths {
	if p.Home == "" {
		p.Home = "/"
	}
	if p.Onboarding == "" {
		p.Onboarding = "/onboarding"
	}
	return p
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.IdentityProvider
	Pending  ports.PendingAuthStore
	Sessions ports.SessionStore
	Users    ports.UserRepository
	Tokens   ports.TokenIssuer
	Revoked  ports.TokenRevoker
	Paths    NavigationPaths
	Logger   *slog.Logger
	Metrics  statsd.Sink // optional
}

// AuthService orchestrates the Savitara sign-in flows. For Google
// sign-in it is the session controller of the two-step flow: a
// credential arrives (popup verify or redirect recovery), is parked
// awaiting an explicit role choice, and is exchanged exactly once.
type AuthService struct {
	provider ports.IdentityProvider
	pending  ports.PendingAuthStore
	sessions ports.SessionStore
	users    ports.UserRepository
	tokens   ports.TokenIssuer
	revoked  ports.TokenRevoker
	paths    NavigationPaths
	logger   *slog.Logger
	metrics  statsd.Sink
}

// Flow-state errors surfaced to callers.
var (
	// ErrNoPendingAuth is returned when a role completion or
	// cancellation arrives with nothing awaiting role selection, e.g.
	// stale UI state after the pending credential expired.
	ErrNoPendingAuth = errors.New("no sign-in awaiting role selection")

	// ErrLoginInFlight rejects a second begin while one is still
	// talking to the provider or exchanging. Flows are never queued.
	ErrLoginInFlight = domainauth.NewProviderError(domainauth.ProviderConcurrentRequest,
		errors.New("sign-in already in flight"))

	// ErrSessionExpired is returned for missing or lapsed sessions.
	ErrSessionExpired = errors.New("session expired")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider: opts.Provider,
		pending:  opts.Pending,
		sessions: opts.Sessions,
		users:    opts.Users,
		tokens:   opts.Tokens,
		revoked:  opts.Revoked,
		paths:    opts.Paths.withDefaults(),
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// emitSince reports one sign-in lifecycle event. errp is read at defer
// time so callers can hand it the named error return.
func (s *AuthService) emitSince(flow, stage string, start time.Time, errp *error) {
	result := metrics.ResultSuccess
	if errp != nil && *errp != nil {
		result = metrics.ResultError
	}
	var cause error
	if errp != nil {
		cause = *errp
	}
	metrics.EmitAuthEvent(s.metrics, metrics.AuthEvent{
		Flow:     flow,
		Stage:    stage,
		Result:   result,
		Duration: time.Since(start),
		Err:      cause,
	})
}

// BeginGoogleLoginInput carries the popup-path begin parameters: the
// client completed the provider popup and holds a raw ID token.
type BeginGoogleLoginInput struct {
	FlowID  string // empty starts a new flow
	IDToken string
}

// BeginGoogleLoginResult tells the caller a role choice is now needed.
type BeginGoogleLoginResult struct {
	FlowID             string
	NeedsRoleSelection bool
	UserEmail          string
}

// BeginGoogleLogin verifies a popup-path ID token and parks the
// credential awaiting role selection. A second begin while this flow
// is mid-provider or mid-exchange is rejected, never queued; a begin
// while a credential is already awaiting role selection overwrites it
// (last-write-wins).
func (s *AuthService) BeginGoogleLogin(ctx context.Context, in BeginGoogleLoginInput) (res *BeginGoogleLoginResult, err error) {
	defer s.emitSince(metrics.FlowGooglePopup, "begin", time.Now(), &err)

	if in.IDToken == "" {
		return nil, apperrors.ValidationField("id_token", "Identity token is required")
	}

	flowID, err := s.ensureFlowAvailable(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	cred, err := s.provider.VerifyIDToken(ctx, in.IDToken)
	if err != nil {
		return nil, err
	}

	if putErr := s.park(ctx, flowID, cred); putErr != nil {
		return nil, putErr
	}

	return &BeginGoogleLoginResult{
		FlowID:             flowID,
		NeedsRoleSelection: true,
		UserEmail:          cred.Email,
	}, nil
}

// BeginGoogleRedirectInput carries the redirect-path begin parameters.
type BeginGoogleRedirectInput struct {
	FlowID      string
	RedirectURL string
}

// BeginGoogleRedirectResult carries the provider URL the client must
// navigate to. The flow resumes in RecoverPendingCredential when the
// provider redirects back.
type BeginGoogleRedirectResult struct {
	FlowID  string
	AuthURL string
}

// BeginGoogleRedirect starts the redirect-mode flow: the provider
// takes over navigation and no further transition happens in this
// page lifetime.
func (s *AuthService) BeginGoogleRedirect(ctx context.Context, in BeginGoogleRedirectInput) (res *BeginGoogleRedirectResult, err error) {
	defer s.emitSince(metrics.FlowGoogleRedirect, "begin", time.Now(), &err)

	flowID, err := s.ensureFlowAvailable(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: in.RedirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin redirect flow: %w", err)
	}

	pendingErr := s.pending.Put(ctx, domainauth.PendingAuth{
		FlowID:     flowID,
		State:      domainauth.FlowAwaitingProvider,
		OAuthState: state,
		Nonce:      nonce,
		CreatedAt:  time.Now().UTC(),
	})
	if pendingErr != nil {
		return nil, fmt.Errorf("store redirect flow: %w", pendingErr)
	}

	return &BeginGoogleRedirectResult{FlowID: flowID, AuthURL: authURL}, nil
}

// RecoverPendingCredentialInput carries the provider callback
// parameters on the page load after the redirect returns.
type RecoverPendingCredentialInput struct {
	FlowID string
	Code   string
	State  string
}

// RecoverPendingCredential completes the provider round trip of a
// redirect-mode flow and transitions straight to awaiting role
// selection, without requiring a new user click. When nothing is
// recoverable the flow stays idle (ErrNoPendingAuth).
func (s *AuthService) RecoverPendingCredential(ctx context.Context, in RecoverPendingCredentialInput) (res *BeginGoogleLoginResult, err error) {
	defer s.emitSince(metrics.FlowGoogleRedirect, "recover", time.Now(), &err)

	stored, err := s.pending.Get(ctx, in.FlowID)
	if err != nil {
		if errors.Is(err, ports.ErrNoPending) {
			return nil, ErrNoPendingAuth
		}
		return nil, fmt.Errorf("load redirect flow: %w", err)
	}
	if stored.State != domainauth.FlowAwaitingProvider {
		return nil, ErrNoPendingAuth
	}
	if in.State == "" || in.State != stored.OAuthState {
		// Forged or replayed callback; the held flow is discarded.
		_ = s.pending.Delete(ctx, in.FlowID)
		return nil, domainauth.NewProviderError(domainauth.ProviderUnknown, errors.New("invalid state parameter"))
	}

	cred, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  in.Code,
		State: in.State,
		Nonce: stored.Nonce,
	})
	if err != nil {
		// Provider failure returns the flow to idle.
		_ = s.pending.Delete(ctx, in.FlowID)
		return nil, err
	}

	if putErr := s.park(ctx, in.FlowID, cred); putErr != nil {
		return nil, putErr
	}

	return &BeginGoogleLoginResult{
		FlowID:             in.FlowID,
		NeedsRoleSelection: true,
		UserEmail:          cred.Email,
	}, nil
}

// CompleteGoogleLoginInput carries the user's explicit role choice.
type CompleteGoogleLoginInput struct {
	FlowID string
	Role   domainauth.Role
}

// CompleteLoginResult contains the established session and the
// one-time navigation command.
type CompleteLoginResult struct {
	Session    domainauth.Session
	Navigation domainauth.NavigationTarget
}

// CompleteGoogleLogin consumes the held credential and exchanges it
// for a session. The pending credential is taken destructively before
// anything else, so it is single-use even when the exchange fails; on
// failure the caller must restart from BeginGoogleLogin.
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, in CompleteGoogleLoginInput) (res *CompleteLoginResult, err error) {
	defer s.emitSince(metrics.FlowGooglePopup, "complete", time.Now(), &err)

	if !in.Role.Valid() {
		return nil, apperrors.ValidationField("role", "Role must be grihasta or acharya")
	}

	pending, err := s.pending.Take(ctx, in.FlowID)
	if err != nil {
		if errors.Is(err, ports.ErrNoPending) {
			return nil, ErrNoPendingAuth
		}
		return nil, fmt.Errorf("take pending auth: %w", err)
	}
	if pending.State != domainauth.FlowAwaitingRoleSelection {
		// A redirect flow that never came back has no credential to exchange.
		return nil, ErrNoPendingAuth
	}

	// The taken credential is replaced by an exchanging marker for the
	// duration of the backend exchange, so a begin arriving mid-exchange
	// is rejected rather than queued. The marker is cleared when the
	// attempt resolves either way.
	s.markExchanging(ctx, in.FlowID)
	defer s.clearFlow(ctx, in.FlowID)

	cred := pending.Credential
	if !cred.EmailVerified {
		return nil, apperrors.Forbidden("Google account email is not verified")
	}

	user, isNew, err := s.upsertGoogleUser(ctx, cred, in.Role)
	if err != nil {
		return nil, err
	}

	return s.establishSession(ctx, establishInput{User: user, IsNewUser: isNew})
}

// CancelGoogleLogin abandons the held credential. No backend exchange
// happens and no navigation is issued.
func (s *AuthService) CancelGoogleLogin(ctx context.Context, flowID string) error {
	if err := s.pending.Delete(ctx, flowID); err != nil {
		return fmt.Errorf("clear pending auth: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// ensureFlowAvailable allocates or validates the flow ID and enforces
// the single-in-flight rule.
func (s *AuthService) ensureFlowAvailable(ctx context.Context, flowID string) (string, error) {
	if flowID == "" {
		return uuid.NewString(), nil
	}

	existing, err := s.pending.Get(ctx, flowID)
	if err != nil {
		if errors.Is(err, ports.ErrNoPending) {
			return flowID, nil
		}
		return "", fmt.Errorf("check pending auth: %w", err)
	}

	switch existing.State {
	case domainauth.FlowAwaitingProvider, domainauth.FlowExchanging:
		return "", ErrLoginInFlight
	default:
		// AwaitingRoleSelection: the fresh credential overwrites it.
		return flowID, nil
	}
}

// markExchanging parks a credential-less marker so ensureFlowAvailable
// sees the flow as busy during the backend exchange. Best-effort: the
// exchange proceeds even when the marker cannot be stored.
func (s *AuthService) markExchanging(ctx context.Context, flowID string) {
	err := s.pending.Put(ctx, domainauth.PendingAuth{
		FlowID:    flowID,
		State:     domainauth.FlowExchanging,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "store exchanging marker failed", "flow_id", flowID, "error", err)
	}
}

// clearFlow removes whatever pending state the flow holds.
func (s *AuthService) clearFlow(ctx context.Context, flowID string) {
	if err := s.pending.Delete(ctx, flowID); err != nil {
		s.logger.WarnContext(ctx, "clear pending auth failed", "flow_id", flowID, "error", err)
	}
}

// park stores a verified credential as awaiting role selection.
func (s *AuthService) park(ctx context.Context, flowID string, cred domainauth.Credential) error {
	err := s.pending.Put(ctx, domainauth.PendingAuth{
		FlowID:     flowID,
		Credential: cred,
		State:      domainauth.FlowAwaitingRoleSelection,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("store pending auth: %w", err)
	}
	return nil
}

// upsertGoogleUser finds or creates the account for a Google
// credential. The requested role only applies at creation; an existing
// account keeps its stored role.
func (s *AuthService) upsertGoogleUser(ctx context.Context, cred domainauth.Credential, role domainauth.Role) (*model.User, bool, error) {
	user, err := s.users.GetByEmail(ctx, cred.Email)
	switch {
	case err == nil:
		if authErr := user.CanAuthenticate(); authErr != nil {
			return nil, false, mapAccountStateError(authErr)
		}
		if recErr := s.users.RecordGoogleLogin(ctx, user.ID, cred.Subject, cred.Picture); recErr != nil {
			return nil, false, fmt.Errorf("record google login: %w", recErr)
		}
		return user, false, nil

	case errors.Is(err, ports.ErrUserNotFound):
		created, createErr := s.users.Create(ctx, &model.CreateUserRequest{
			Email:          cred.Email,
			Name:           cred.Name,
			GoogleID:       cred.Subject,
			Role:           role,
			Status:         model.UserStatusPending,
			Credits:        model.WelcomeCredits,
			ProfilePicture: cred.Picture,
		})
		if createErr != nil {
			return nil, false, createErr
		}
		s.logger.InfoContext(ctx, "new user created via google sign-in",
			"email", created.Email, "role", created.Role)
		return created, true, nil

	default:
		return nil, false, fmt.Errorf("look up user: %w", err)
	}
}

type establishInput struct {
	User      *model.User
	IsNewUser bool
}

// establishSession issues the token pair, persists the session as one
// atomic record, and computes the navigation target from the fresh
// user record. A storage failure here means the attempt failed: a
// session without persisted tokens is not authenticated.
func (s *AuthService) establishSession(ctx context.Context, in establishInput) (*CompleteLoginResult, error) {
	user := in.User

	onboarded, err := s.users.HasProfile(ctx, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("check onboarding profile: %w", err)
	}

	accessToken, _, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, refreshClaims, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	session := domainauth.Session{
		ID:           uuid.NewString(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         summarize(user, in.IsNewUser, onboarded),
		ExpiresAt:    refreshClaims.ExpiresAt,
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	// Navigation is decided here, from the record just returned, and
	// handed back as the immediate next step. Replace semantics keep
	// the pre-auth page out of history.
	target := s.paths.Home
	if !session.User.Onboarded {
		target = s.paths.Onboarding
	}

	return &CompleteLoginResult{
		Session:    session,
		Navigation: domainauth.NavigationTarget{Path: target, Replace: true},
	}, nil
}

func summarize(user *model.User, isNew, onboarded bool) domainauth.UserSummary {
	return domainauth.UserSummary{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		Status:         string(user.Status),
		Credits:        user.Credits,
		ProfilePicture: user.ProfilePicture,
		IsNewUser:      isNew,
		Onboarded:      onboarded,
	}
}
