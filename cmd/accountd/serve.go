// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/account/postgres"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/observability"
	"github.com/accountd/accountd/internal/store"
	"github.com/accountd/accountd/internal/xdg"
)

// ObservabilityServer is the subset of observability.Server the serve
// command drives. Narrowed to an interface for test injection.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *account.Metrics
}

// ServeDeps holds injectable dependencies for the serve command.
// Nil fields fall back to production implementations.
type ServeDeps struct {
	// Connector opens the database handle. The returned cleanup func
	// closes it.
	Connector func(ctx context.Context, opts store.ConnectOptions) (postgres.DB, func(), error)
	// ObservabilityServerFactory builds the metrics/health server.
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the accountd service process",
		Long: `Run the accountd service process: connect to PostgreSQL, wire the
account, auth, and profile services, and expose metrics and health
probes until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	registerConfigFlags(cmd)
	return cmd
}

// registerConfigFlags declares the dotted config-override flags shared
// by subcommands that load the full configuration.
func registerConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL (default: DATABASE_URL)")
	cmd.Flags().Uint64("database.connect_retries", config.DefaultConnectRetries, "startup ping retries")
	cmd.Flags().Duration("session.ttl", config.DefaultSessionTTL, "session lifetime")
	cmd.Flags().Duration("reset.ttl", config.DefaultResetTTL, "password reset token lifetime")
	cmd.Flags().String("metrics.addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log.format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log.level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
}

// loadConfig loads and validates configuration for a subcommand. When no
// --config flag is given, the XDG default path is used if a file exists
// there.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		if def := xdg.DefaultConfigFile(); fileExists(def) {
			path = def
		}
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileExists returns true if the file exists. Permission errors are
// treated as "file exists" so an unreadable config surfaces as a load
// error instead of being silently skipped.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// runServeWithDeps starts the service process with injectable
// dependencies. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.Connector == nil {
		deps.Connector = func(ctx context.Context, opts store.ConnectOptions) (postgres.DB, func(), error) {
			pool, err := store.Connect(ctx, opts)
			if err != nil {
				return nil, nil, err
			}
			return pool, pool.Close, nil
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logging.SetDefault("accountd", version, cfg.Log.Format, cfg.Log.Level)
	logger := slog.Default()

	logger.Info("starting accountd",
		"metrics_addr", cfg.Metrics.Addr,
		"session_ttl", cfg.Session.TTL.String(),
		"reset_ttl", cfg.Reset.TTL.String(),
	)

	db, closeDB, err := deps.Connector(ctx, store.ConnectOptions{
		URL:     cfg.Database.URL,
		Retries: cfg.Database.ConnectRetries,
		Logger:  logger,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer closeDB()

	logger.Info("connected to database")

	svc, err := wireServices(db, cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		// Ready once the database connection and service wiring are up.
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool { return true })
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

		metrics := obsServer.Metrics()
		svc.lifecycle.SetMetrics(metrics)
		svc.auth.SetMetrics(metrics)

		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("accountd started")
	logger.Info("accountd ready")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// services bundles the wired account services.
type services struct {
	lifecycle *account.LifecycleService
	auth      *account.AuthService
	profile   *account.ProfileService
	sessions  *postgres.SessionRepository
	accounts  *postgres.AccountRepository
}

// wireServices builds the account services on top of a database handle.
func wireServices(db postgres.DB, cfg *config.Config, logger *slog.Logger) (*services, error) {
	accounts := postgres.NewAccountRepository(db)
	sessions := postgres.NewSessionRepository(db)
	hasher := account.NewArgon2idHasher()
	validator := account.NewBasicValidator()
	mailer := account.NewLogMailer(logger)

	auth, err := account.NewAuthServiceWithLogger(accounts, sessions, hasher, mailer, validator, logger)
	if err != nil {
		return nil, oops.Code("WIRING_FAILED").With("service", "auth").Wrap(err)
	}
	auth.SessionTTL = cfg.Session.TTL
	auth.ResetTTL = cfg.Reset.TTL

	lifecycle, err := account.NewLifecycleServiceWithLogger(accounts, hasher, validator, sessions.DeleteByAccount, logger)
	if err != nil {
		return nil, oops.Code("WIRING_FAILED").With("service", "lifecycle").Wrap(err)
	}

	profile, err := account.NewProfileServiceWithLogger(accounts, hasher, validator, logger)
	if err != nil {
		return nil, oops.Code("WIRING_FAILED").With("service", "profile").Wrap(err)
	}

	return &services{
		lifecycle: lifecycle,
		auth:      auth,
		profile:   profile,
		sessions:  sessions,
		accounts:  accounts,
	}, nil
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed server tears down the whole process.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
