package httpx

import (
	"context"

	"github.com/savitara/savitara-api/internal/ports"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// SetClaimsInContext stores verified access-token claims in the context.
func SetClaimsInContext(ctx context.Context, claims ports.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext retrieves access-token claims placed by RequireAuth.
func ClaimsFromContext(ctx context.Context) (ports.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(ports.AccessClaims)
	return claims, ok
}
