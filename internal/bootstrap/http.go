package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/savitara/savitara-api/config"
	httpx "github.com/savitara/savitara-api/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *AuthServices
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil || cfg.Services == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Auth:           cfg.Services.Auth,
		Tokens:         cfg.Services.Tokens,
		CookieDomain:   appCfg.HTTP.CookieDomain,
		AllowedOrigins: appCfg.Auth.AllowedOrigins,
		LoginRateLimit: rate.Limit(appCfg.Auth.LoginRatePerSecond),
		LoginBurst:     appCfg.Auth.LoginBurst,
		Logger:         logger,
	})

	// Order: Recover -> Logging -> Router
	handler := httpx.Logging(logger)(router)
	handler = httpx.Recover(logger)(handler)

	return startServer(logger, handler, appCfg.HTTP.Addr)
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
