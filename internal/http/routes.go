package httpx

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/savitara/savitara-api/internal/ports"
	"github.com/savitara/savitara-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Tokens       ports.TokenIssuer
	CookieDomain string

	// AllowedOrigins lists origins permitted to call the auth
	// endpoints; empty disables the check (local development).
	AllowedOrigins []string

	// LoginRateLimit caps sign-in attempts per client IP. Zero
	// disables rate limiting.
	LoginRateLimit rate.Limit
	LoginBurst     int

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router. Logging and panic
// recovery are applied by the caller so test routers stay quiet.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}

	registerAuthRoutes(mux, authHandlers, services)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return CheckOrigin(services.AllowedOrigins)(mux)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, services RouterServices) {
	// Sign-in attempts are rate limited per IP; authenticated and
	// teardown endpoints are not.
	limited := func(hf http.HandlerFunc) http.Handler {
		if services.LoginRateLimit <= 0 {
			return hf
		}
		return RateLimit(services.LoginRateLimit, services.LoginBurst)(hf)
	}

	mux.Handle("POST /api/v1/auth/google", limited(h.GoogleBegin))
	mux.Handle("GET /api/v1/auth/google/redirect", limited(h.GoogleRedirect))
	mux.Handle("GET /api/v1/auth/google/callback", limited(h.GoogleCallback))
	mux.Handle("POST /api/v1/auth/google/complete", limited(h.GoogleComplete))
	mux.Handle("POST /api/v1/auth/google/cancel", http.HandlerFunc(h.GoogleCancel))
	mux.Handle("POST /api/v1/auth/register", limited(h.Register))
	mux.Handle("POST /api/v1/auth/login", limited(h.Login))
	mux.Handle("POST /api/v1/auth/refresh", http.HandlerFunc(h.Refresh))
	mux.Handle("POST /api/v1/auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("GET /api/v1/auth/me", RequireAuth(services.Tokens)(http.HandlerFunc(h.Me)))
	mux.Handle("GET /api/v1/auth/health", http.HandlerFunc(healthHandler))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
