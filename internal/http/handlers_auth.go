package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginGoogleLogin(ctx context.Context, in service.BeginGoogleLoginInput) (*service.BeginGoogleLoginResult, error)
	BeginGoogleRedirect(ctx context.Context, in service.BeginGoogleRedirectInput) (*service.BeginGoogleRedirectResult, error)
	RecoverPendingCredential(ctx context.Context, in service.RecoverPendingCredentialInput) (*service.BeginGoogleLoginResult, error)
	CompleteGoogleLogin(ctx context.Context, in service.CompleteGoogleLoginInput) (*service.CompleteLoginResult, error)
	CancelGoogleLogin(ctx context.Context, flowID string) error
	Register(ctx context.Context, in service.RegisterInput) (*service.CompleteLoginResult, error)
	LoginWithPassword(ctx context.Context, in service.LoginInput) (*service.CompleteLoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	CurrentUser(ctx context.Context, userID string) (*domainauth.UserSummary, error)
	Logout(ctx context.Context, in service.LogoutInput) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

const flowCookieName = "auth_flow_id"

// sessionPayload is the data envelope of a completed sign-in.
type sessionPayload struct {
	SessionID    string                      `json:"session_id"`
	AccessToken  string                      `json:"access_token"`
	RefreshToken string                      `json:"refresh_token"`
	ExpiresAt    time.Time                   `json:"expires_at"`
	User         domainauth.UserSummary      `json:"user"`
	NavigateTo   domainauth.NavigationTarget `json:"navigate_to"`
}

func newSessionPayload(result *service.CompleteLoginResult) sessionPayload {
	return sessionPayload{
		SessionID:    result.Session.ID,
		AccessToken:  result.Session.AccessToken,
		RefreshToken: result.Session.RefreshToken,
		ExpiresAt:    result.Session.ExpiresAt,
		User:         result.Session.User,
		NavigateTo:   result.Navigation,
	}
}

// GoogleBegin handles the popup-path begin endpoint.
// POST /api/v1/auth/google.
//
// When the body carries a role alongside the ID token the two steps
// collapse into one: the credential is verified and exchanged in a
// single call, for clients that already know the role (e.g. a repeat
// sign-in). Without a role the flow parks awaiting role selection.
func (h *AuthHandlers) GoogleBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"id_token"`
		FlowID  string `json:"flow_id"`
		Role    string `json:"role"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.BeginGoogleLogin(r.Context(), service.BeginGoogleLoginInput{
		FlowID:  req.FlowID,
		IDToken: req.IDToken,
	})
	if err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	if role := strings.ToLower(strings.TrimSpace(req.Role)); role != "" {
		completed, completeErr := h.Svc.CompleteGoogleLogin(r.Context(), service.CompleteGoogleLoginInput{
			FlowID: result.FlowID,
			Role:   domainauth.Role(role),
		})
		if completeErr != nil {
			RenderError(w, h.logger(), completeErr)
			return
		}
		WriteSuccess(w, http.StatusOK, newSessionPayload(completed))
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]any{
		"flow_id":              result.FlowID,
		"needs_role_selection": result.NeedsRoleSelection,
		"email":                result.UserEmail,
	})
}

// GoogleRedirect handles the redirect-path begin endpoint.
// GET /api/v1/auth/google/redirect.
func (h *AuthHandlers) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.BeginGoogleRedirect(r.Context(), service.BeginGoogleRedirectInput{
		RedirectURL: r.URL.Query().Get("redirect_uri"),
	})
	if err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	// The flow ID must survive the full page navigation to the
	// provider and back, so it rides a cookie rather than client state.
	h.setFlowCookie(w, r, result.FlowID)

	WriteSuccess(w, http.StatusOK, map[string]any{
		"flow_id":  result.FlowID,
		"auth_url": result.AuthURL,
	})
}

// GoogleCallback handles the provider redirect return.
// GET /api/v1/auth/google/callback?code=<code>&state=<state>.
func (h *AuthHandlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, Message: "Missing code or state parameter"})
		return
	}

	flowCookie, err := r.Cookie(flowCookieName)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, Message: "Sign-in flow not found. Please start again."})
		return
	}

	result, err := h.Svc.RecoverPendingCredential(r.Context(), service.RecoverPendingCredentialInput{
		FlowID: flowCookie.Value,
		Code:   code,
		State:  state,
	})
	if err != nil {
		h.clearCookie(w, r, flowCookieName)
		RenderError(w, h.logger(), err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]any{
		"flow_id":              result.FlowID,
		"needs_role_selection": result.NeedsRoleSelection,
		"email":                result.UserEmail,
	})
}

// GoogleComplete handles the role-selection completion endpoint.
// POST /api/v1/auth/google/complete.
func (h *AuthHandlers) GoogleComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FlowID string `json:"flow_id"`
		Role   string `json:"role"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.CompleteGoogleLogin(r.Context(), service.CompleteGoogleLoginInput{
		FlowID: req.FlowID,
		Role:   domainauth.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	h.clearCookie(w, r, flowCookieName)
	WriteSuccess(w, http.StatusOK, newSessionPayload(result))
}

// GoogleCancel handles abandoning a pending sign-in.
// POST /api/v1/auth/google/cancel.
func (h *AuthHandlers) GoogleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FlowID string `json:"flow_id"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.CancelGoogleLogin(r.Context(), req.FlowID); err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	h.clearCookie(w, r, flowCookieName)
	WriteSuccessMessage(w, http.StatusOK, "Sign-in cancelled")
}

// Register handles email registration.
// POST /api/v1/auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domainauth.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	WriteSuccess(w, http.StatusCreated, newSessionPayload(result))
}

// Login handles email/password sign-in.
// POST /api/v1/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.LoginWithPassword(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	WriteSuccess(w, http.StatusOK, newSessionPayload(result))
}

// Refresh rotates a refresh token.
// POST /api/v1/auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt,
	})
}

// Me returns the authenticated user's profile.
// GET /api/v1/auth/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, Message: "Authentication required"})
		return
	}

	summary, err := h.Svc.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		RenderError(w, h.logger(), err)
		return
	}

	WriteSuccess(w, http.StatusOK, summary)
}

// Logout revokes the refresh token and tears down the session.
// POST /api/v1/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID    string `json:"session_id"`
		RefreshToken string `json:"refresh_token"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := h.Svc.Logout(r.Context(), service.LogoutInput{
		SessionID:    req.SessionID,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		RenderError(w, h.logger(), err)
		return
	}

	WriteSuccessMessage(w, http.StatusOK, "Logged out")
}

// setFlowCookie stores the redirect-mode flow ID in a secure cookie.
func (h *AuthHandlers) setFlowCookie(w http.ResponseWriter, r *http.Request, flowID string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    flowID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   int((10 * time.Minute).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
