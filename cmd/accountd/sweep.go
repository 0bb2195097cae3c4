// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/account/postgres"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/store"
)

// SweepDeps holds injectable dependencies for the sweep command.
type SweepDeps struct {
	Connector func(ctx context.Context, opts store.ConnectOptions) (postgres.DB, func(), error)
}

// NewSweepCmd creates the sweep subcommand.
//
// Expiry is enforced lazily at read time, so the sweep is housekeeping:
// it reclaims rows for expired sessions and expired reset tokens but is
// never required for correctness.
func NewSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions and clear expired reset tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweepWithDeps(cmd.Context(), cmd, nil)
		},
	}

	registerConfigFlags(cmd)
	return cmd
}

func runSweepWithDeps(ctx context.Context, cmd *cobra.Command, deps *SweepDeps) error {
	if deps == nil {
		deps = &SweepDeps{}
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

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logging.SetDefault("accountd-sweep", version, cfg.Log.Format, cfg.Log.Level)
	logger := slog.Default()

	db, closeDB, err := deps.Connector(ctx, store.ConnectOptions{
		URL:     cfg.Database.URL,
		Retries: cfg.Database.ConnectRetries,
		Logger:  logger,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer closeDB()

	sessions := postgres.NewSessionRepository(db)
	accounts := postgres.NewAccountRepository(db)

	sessionCount, err := sessions.DeleteExpired(ctx)
	if err != nil {
		return oops.Code("SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}

	tokenCount, err := accounts.SweepExpiredResetTokens(ctx, time.Now())
	if err != nil {
		return oops.Code("SWEEP_FAILED").With("operation", "clear expired reset tokens").Wrap(err)
	}

	logger.Info("sweep complete",
		"expired_sessions_deleted", sessionCount,
		"expired_reset_tokens_cleared", tokenCount,
	)
	cmd.Printf("Deleted %d expired sessions, cleared %d expired reset tokens\n", sessionCount, tokenCount)
	return nil
}
