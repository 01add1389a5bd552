package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/savitara/savitara-api/config"
	"github.com/savitara/savitara-api/internal/observability/statsd"
)

// RunConfig contains everything needed to run the service until shutdown.
type RunConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Run builds the auth service, starts the HTTP server, and blocks
// until SIGINT/SIGTERM or a fatal startup error.
func Run(ctx context.Context, cfg *RunConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var metricsSink statsd.Sink
	if cfg.Config.Metrics.IsEnabled() {
		client, clientErr := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Config.Metrics.StatsdAddress,
			Prefix:  "savitara",
			Logger:  logger,
		})
		if clientErr != nil {
			logger.Error("failed to initialise statsd client", "error", clientErr)
		} else {
			metricsSink = client
			defer func() {
				if closeErr := client.Close(); closeErr != nil {
					logger.Debug("statsd close failed", "error", closeErr)
				}
			}()
		}
	}

	services, err := BuildAuthService(AuthConfig{
		Auth:        cfg.Config.Auth,
		DB:          cfg.DB,
		RedisClient: cfg.RedisClient,
		Logger:      logger,
		Metrics:     metricsSink,
	})
	if err != nil {
		return err
	}

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: services,
		Logger:   logger,
	})

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		<-gctx.Done()
		// Shutdown runs against the parent context: the signal context
		// is already done by the time we get here.
		return ShutdownHTTPServer(ShutdownConfig{
			Context: ctx,
			Server:  server,
			Timeout: cfg.Config.HTTP.ShutdownTimeout,
			Logger:  logger,
		})
	})

	return g.Wait()
}
