package cli

import (
	"context"
	"fmt"

	"github.com/jordancooper-dev/keygate/config"
	"github.com/jordancooper-dev/keygate/internal/app"
	"github.com/jordancooper-dev/keygate/internal/secrets"
	"github.com/jordancooper-dev/keygate/observability"
	"github.com/jordancooper-dev/keygate/repository"
)

// loadConfig loads and validates configuration, then wires the logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	observability.InitLogger(cfg.App.Production, cfg.App.LogLevel)
	return cfg, nil
}

// openRepository connects to the database described by the environment
func openRepository(ctx context.Context, cfg *config.Config) (*repository.Repository, error) {
	if !cfg.HasDatabase() {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	repo, err := repository.NewRepository(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return repo, nil
}

// openApp wires an App over a live database connection for the key
// commands. The caller must Close the returned App.
func openApp(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	codec := secrets.NewCodec(cfg.APIKey.BcryptCost)
	return app.New(cfg, repo, codec, nil), cfg, nil
}
