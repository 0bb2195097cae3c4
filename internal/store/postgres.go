// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectRetries is how many times Connect pings the database
// before giving up. Each retry backs off exponentially from 500ms.
const DefaultConnectRetries = 5

// ConnectOptions controls pool creation.
type ConnectOptions struct {
	// URL is the PostgreSQL connection string (postgres:// scheme).
	URL string
	// Retries overrides DefaultConnectRetries when > 0.
	Retries uint64
	// Logger receives retry warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Connect creates a pgx connection pool and verifies connectivity with
// a retried ping. The database may still be starting when the process
// comes up, so transient ping failures are retried with exponential
// backoff before Connect fails.
func Connect(ctx context.Context, opts ConnectOptions) (*pgxpool.Pool, error) {
	if opts.URL == "" {
		return nil, oops.Code("STORE_INVALID_CONFIG").Errorf("database URL is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retries := opts.Retries
	if retries == 0 {
		retries = DefaultConnectRetries
	}

	pool, err := pgxpool.New(ctx, opts.URL)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(retries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.Warn("database ping failed, retrying", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_PING_FAILED").
			With("operation", "ping database").
			With("retries", retries).
			Wrap(err)
	}

	return pool, nil
}
