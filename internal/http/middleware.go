package httpx

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/savitara/savitara-api/internal/ports"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{Code: http.StatusInternalServerError, Message: "Internal Server Error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires a valid bearer access
// token. Verified claims are placed in the request context.
func RequireAuth(tokens ports.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				WriteError(w, ErrorParams{Code: http.StatusUnauthorized, Message: "Authentication required"})
				return
			}

			claims, err := tokens.VerifyAccess(raw)
			if err != nil {
				WriteError(w, ErrorParams{Code: http.StatusUnauthorized, Message: "Invalid or expired token"})
				return
			}

			ctx := SetClaimsInContext(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// RateLimit returns a per-client-IP token-bucket limiter middleware.
// Stale entries are pruned in the background.
func RateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)

	go func() {
		for range time.Tick(time.Minute) {
			mu.Lock()
			for ip, v := range visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(visitors, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			mu.Lock()
			v, ok := visitors[ip]
			if !ok {
				v = &visitor{limiter: rate.NewLimiter(limit, burst)}
				visitors[ip] = v
			}
			v.lastSeen = time.Now()
			allowed := v.limiter.Allow()
			mu.Unlock()

			if !allowed {
				WriteError(w, ErrorParams{Code: http.StatusTooManyRequests, Message: "Too many requests. Please slow down."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckOrigin returns a middleware that rejects cross-origin requests
// from unregistered sites. Origins are compared by registrable domain
// (eTLD+1), so app.savitara.in and www.savitara.in both match a
// savitara.in allowlist entry. Requests without an Origin header
// (curl, same-origin navigations) pass through.
func CheckOrigin(allowed []string) func(http.Handler) http.Handler {
	allowedDomains := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if d, err := registrableDomain(a); err == nil {
			allowedDomains[d] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedDomains) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			domain, err := registrableDomain(origin)
			if err != nil {
				WriteError(w, ErrorParams{Code: http.StatusForbidden, Message: "Origin not allowed"})
				return
			}
			if _, ok := allowedDomains[domain]; !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					Message: "This origin is not registered for sign-in.",
					Details: map[string]string{"kind": "unauthorized_origin"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func registrableDomain(origin string) (string, error) {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" || net.ParseIP(host) != nil {
		return host, nil
	}
	return publicsuffix.EffectiveTLDPlusOne(host)
}
