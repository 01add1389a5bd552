package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
	apperrors "github.com/savitara/savitara-api/internal/errors"
	"github.com/savitara/savitara-api/internal/observability/metrics"
	"github.com/savitara/savitara-api/internal/ports"
)

const minPasswordLength = 8

// RegisterInput carries an email registration. Unlike the Google flow
// the role arrives up front, with the rest of the form.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domainauth.Role
}

func (in *RegisterInput) validate() error {
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return apperrors.ValidationField("email", "A valid email address is required")
	}
	if len(in.Password) < minPasswordLength {
		return apperrors.ValidationField("password",
			fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.ValidationField("name", "Name is required")
	}
	if !in.Role.Valid() {
		return apperrors.ValidationField("role", "Role must be grihasta or acharya")
	}
	return nil
}

// Register creates an email/password account and signs it in. The new
// account starts pending with the welcome credit grant, same as a
// first Google sign-in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *CompleteLoginResult, err error) {
	defer s.emitSince(metrics.FlowRegister, "register", time.Now(), &err)

	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &model.CreateUserRequest{
		Email:        strings.TrimSpace(in.Email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         in.Role,
		Status:       model.UserStatusPending,
		Credits:      model.WelcomeCredits,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "new user registered",
		"email", user.Email, "role", user.Role)

	return s.establishSession(ctx, establishInput{User: user, IsNewUser: true})
}

// LoginInput carries an email/password sign-in.
type LoginInput struct {
	Email    string
	Password string
}

// LoginWithPassword authenticates an email/password account. An
// unknown email is reported as such so the client can route the user
// to registration; a wrong password is not distinguished further.
func (s *AuthService) LoginWithPassword(ctx context.Context, in LoginInput) (res *CompleteLoginResult, err error) {
	defer s.emitSince(metrics.FlowPassword, "login", time.Now(), &err)

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, apperrors.NotFound("No account found with this email. Please sign up first.")
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if user.PasswordHash == "" {
		// Google-only account; there is no password to check.
		return nil, apperrors.Unauthorized("This account uses Google sign-in. Please continue with Google.")
	}
	if !checkPassword(user.PasswordHash, in.Password) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if authErr := user.CanAuthenticate(); authErr != nil {
		return nil, mapAccountStateError(authErr)
	}

	if touchErr := s.users.TouchLastLogin(ctx, user.ID); touchErr != nil {
		return nil, fmt.Errorf("record login: %w", touchErr)
	}

	return s.establishSession(ctx, establishInput{User: user})
}

// TokenPair is the result of a refresh rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Refresh rotates a refresh token: the presented token is verified,
// checked against the denylist, revoked, and replaced by a fresh pair.
// A token that has already been rotated or logged out is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer s.emitSince(metrics.FlowRefresh, "rotate", time.Now(), &err)

	if refreshToken == "" {
		return nil, apperrors.Unauthorized("Refresh token is required")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "Invalid refresh token")
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("Refresh token has been revoked")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, apperrors.Unauthorized("Account no longer exists")
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if authErr := user.CanAuthenticate(); authErr != nil {
		return nil, mapAccountStateError(authErr)
	}

	// Retire the old token before minting the new pair; replaying it
	// after this point must fail.
	if revokeErr := s.revoked.Revoke(ctx, claims.TokenID, claims.ExpiresAt); revokeErr != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", revokeErr)
	}

	accessToken, accessExpiry, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	newRefresh, _, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExpiry,
	}, nil
}

// CurrentUser returns the profile summary for an authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domainauth.UserSummary, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, apperrors.NotFound("Account not found")
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	onboarded, err := s.users.HasProfile(ctx, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("check onboarding profile: %w", err)
	}

	summary := summarize(user, false, onboarded)
	return &summary, nil
}

// LogoutInput names what to tear down. Both fields are optional; an
// already-expired token or missing session still logs out cleanly.
type LogoutInput struct {
	SessionID    string
	RefreshToken string
}

// Logout revokes the refresh token and deletes the session. The access
// token is short-lived and simply ages out.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput) error {
	if in.RefreshToken != "" {
		if claims, err := s.tokens.VerifyRefresh(in.RefreshToken); err == nil {
			if revokeErr := s.revoked.Revoke(ctx, claims.TokenID, claims.ExpiresAt); revokeErr != nil {
				return fmt.Errorf("revoke refresh token: %w", revokeErr)
			}
		}
	}

	if in.SessionID != "" {
		if err := s.sessions.Delete(ctx, in.SessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

// mapAccountStateError translates account-state refusals into the
// messages shown to the user.
func mapAccountStateError(err error) error {
	switch {
	case errors.Is(err, model.ErrUserSuspended):
		return apperrors.Forbidden("Account suspended. Please contact support.")
	case errors.Is(err, model.ErrUserNotActive):
		return apperrors.Forbidden("Account is not active")
	default:
		return err
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
