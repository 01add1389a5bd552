package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	apperrors "github.com/savitara/savitara-api/internal/errors"
	"github.com/savitara/savitara-api/internal/service"
)

// RenderError translates service-layer errors into the response
// envelope. Provider errors carry their kind in details so the client
// can branch (retry, switch to redirect mode, show a message) without
// string matching.
func RenderError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var perr *domainauth.ProviderError
	if errors.As(err, &perr) {
		WriteError(w, ErrorParams{
			Code:    providerErrorStatus(perr.Kind),
			Message: perr.UserMessage(),
			Details: map[string]string{"kind": string(perr.Kind)},
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		p := ErrorParams{Code: appErrorStatus(appErr.Code), Message: appErr.Message}
		if appErr.Field != "" {
			p.Details = map[string]string{"field": appErr.Field}
		}
		WriteError(w, p)
		return
	}

	switch {
	case errors.Is(err, service.ErrNoPendingAuth):
		WriteError(w, ErrorParams{Code: http.StatusConflict, Message: "No sign-in awaiting role selection. Please sign in again."})
	case errors.Is(err, service.ErrSessionExpired):
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, Message: "Session expired. Please sign in again."})
	case errors.Is(err, context.Canceled):
		// Client went away; status is best-effort.
		WriteError(w, ErrorParams{Code: 499, Message: "Request canceled"})
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("unhandled service error", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, Message: "Something went wrong. Please try again."})
	}
}

func providerErrorStatus(kind domainauth.ProviderErrorKind) int {
	switch kind {
	case domainauth.ProviderUserCancelled, domainauth.ProviderPopupBlocked:
		return http.StatusBadRequest
	case domainauth.ProviderUnauthorizedOrigin:
		return http.StatusForbidden
	case domainauth.ProviderConcurrentRequest:
		return http.StatusConflict
	case domainauth.ProviderDisabled:
		return http.StatusServiceUnavailable
	case domainauth.ProviderNetworkFailure:
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}

func appErrorStatus(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
