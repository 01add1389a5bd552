package auth

import "fmt"

// ProviderErrorKind categorizes identity-provider failures. Each kind
// maps to a distinct, non-technical user-facing message.
type ProviderErrorKind string

const (
	ProviderUserCancelled      ProviderErrorKind = "user_cancelled"
	ProviderPopupBlocked       ProviderErrorKind = "popup_blocked"
	ProviderDisabled           ProviderErrorKind = "provider_disabled"
	ProviderUnauthorizedOrigin ProviderErrorKind = "unauthorized_origin"
	ProviderNetworkFailure     ProviderErrorKind = "network_failure"
	ProviderConcurrentRequest  ProviderErrorKind = "concurrent_request"
	ProviderUnknown            ProviderErrorKind = "unknown"
)

// ProviderError wraps an identity-provider failure with its kind.
type ProviderError struct {
	Kind ProviderErrorKind
	Raw  error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("provider %s: %v", e.Kind, e.Raw)
	}
	return "provider " + string(e.Kind)
}

// Unwrap returns the raw provider error for errors.Is/As.
func (e *ProviderError) Unwrap() error { return e.Raw }

// UserMessage returns the message shown to the user. Unknown falls
// back to the provider's raw message.
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case ProviderUserCancelled:
		return "Sign-in was cancelled."
	case ProviderPopupBlocked:
		return "Your browser blocked the sign-in window. Please allow popups and try again."
	case ProviderDisabled:
		return "Google sign-in is not available right now. Please try again later."
	case ProviderUnauthorizedOrigin:
		return "Sign-in is not allowed from this site."
	case ProviderNetworkFailure:
		return "Could not reach the sign-in service. Check your connection and try again."
	case ProviderConcurrentRequest:
		return "A sign-in is already in progress."
	default:
		if e.Raw != nil {
			return e.Raw.Error()
		}
		return "Sign-in failed. Please try again."
	}
}

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(kind ProviderErrorKind, raw error) *ProviderError {
	return &ProviderError{Kind: kind, Raw: raw}
}
