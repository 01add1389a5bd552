package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/savitara/savitara-api/config"
)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig checks settings that cannot be defaulted.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.Auth.Token.Secret == "" && !cfg.IsDev {
		return errors.New("TOKEN_SECRET is required outside development")
	}
	if cfg.Auth.Mode == config.AuthModeOAuth && !cfg.IsDev {
		if cfg.Auth.Google.ClientID == "" || cfg.Auth.Google.ClientSecret == "" {
			return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for oauth mode")
		}
	}
	return nil
}
