package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/attendance/external/config"
	"github.com/foxseedlab/attendance/external/httpapi"
	"github.com/foxseedlab/attendance/external/metrics"
	repositoryimpl "github.com/foxseedlab/attendance/external/repository"
	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/foxseedlab/attendance/internal/config"
	"github.com/foxseedlab/attendance/internal/logging"
	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/foxseedlab/attendance/internal/webhook"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const migrateTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", logging.ErrKey, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "backend",
		Short:         "Zoom webhook attendance tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newHandshakeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the store and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and views, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			initLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()
			store, err := repositoryimpl.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migration: %w", err)
			}
			slog.Info("migration completed", "driver", cfg.StoreDriver)
			return nil
		},
	}
}

func newHandshakeCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "handshake <plainToken>",
		Short: "Print the url_validation response for plainToken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := webhook.Handshake(secret, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "plainToken=%s\nencryptedToken=%s\n", resp.PlainToken, resp.EncryptedToken)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("ZOOM_WEBHOOK_SECRET"), "webhook secret token")
	return cmd
}

func loadConfig() (*config.Config, error) {
	slog.Info("startup: loading configuration")
	cfg, err := configloader.Load()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) {
	slog.SetDefault(logging.NewLogger(os.Stdout, logging.Options{
		Development: cfg.IsDevelopment(),
		Level:       cfg.LogLevel,
		AddSource:   cfg.LogAddSource,
	}))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector, true)
	metrics.RegisterDI(injector)
	attendance.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "store_driver", cfg.StoreDriver)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	store, err := do.Invoke[repository.Store](injector)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	srv, err := do.Invoke[*http.Server](injector)
	if err != nil {
		return fmt.Errorf("failed to build http server: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := httpapi.Serve(ctx, srv, cfg.HTTPShutdownTimeout); err != nil {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}
