package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jordancooper-dev/keygate/internal/api"
	"github.com/jordancooper-dev/keygate/internal/app"
	"github.com/jordancooper-dev/keygate/internal/auth"
	"github.com/jordancooper-dev/keygate/internal/secrets"
	"github.com/jordancooper-dev/keygate/observability"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Start the key management and item API, the health probes, and the Prometheus metrics endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, migrate)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the schema before serving")

	return cmd
}

func runServe(addr string, migrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}

	observability.InitMetrics()

	ctx := context.Background()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if migrate {
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		observability.Info("schema applied")
	}

	codec := secrets.NewCodec(cfg.APIKey.BcryptCost)
	validator := auth.NewValidator(auth.NewStore(repo), codec, cfg.APIKey)
	application := app.New(cfg, repo, codec, validator)

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.RequestTimeout,
		WriteTimeout: cfg.HTTP.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Info("starting server", "addr", cfg.HTTP.Addr, "production", cfg.App.Production)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		observability.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	observability.Info("server stopped")
	return nil
}
