// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/account/postgres"
)

func sessionColumns() []string {
	return []string{
		"id", "account_id", "token_hash", "user_agent", "ip_address",
		"expires_at", "created_at", "last_seen_at",
	}
}

func testSession(t *testing.T) *account.Session {
	t.Helper()
	session, err := account.NewSession(ulid.Make(), "tokenhash", "Mozilla/5.0", "192.168.1.1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	return session
}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	session := testSession(t)

	t.Run("inserts new session", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), session.AccountID.String(), session.TokenHash,
				session.UserAgent, session.IPAddress, session.ExpiresAt, session.CreatedAt, session.LastSeenAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.Create(ctx, session))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error surfaces", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), session.AccountID.String(), session.TokenHash,
				session.UserAgent, session.IPAddress, session.ExpiresAt, session.CreatedAt, session.LastSeenAt).
			WillReturnError(errors.New("connection refused"))

		repo := postgres.NewSessionRepository(mock)
		err := repo.Create(ctx, session)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	session := testSession(t)

	t.Run("returns the session", func(t *testing.T) {
		mock := newMockPool(t)
		rows := pgxmock.NewRows(sessionColumns()).AddRow(
			session.ID.String(),
			session.AccountID.String(),
			session.TokenHash,
			session.UserAgent,
			session.IPAddress,
			session.ExpiresAt,
			session.CreatedAt,
			session.LastSeenAt,
		)
		mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE token_hash = \$1`).
			WithArgs(session.TokenHash).
			WillReturnRows(rows)

		repo := postgres.NewSessionRepository(mock)
		got, err := repo.GetByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.AccountID, got.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("unknown token returns ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE token_hash = \$1`).
			WithArgs("unknownhash").
			WillReturnRows(pgxmock.NewRows(sessionColumns()))

		repo := postgres.NewSessionRepository(mock)
		_, err := repo.GetByTokenHash(ctx, "unknownhash")
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("corrupt account id surfaces", func(t *testing.T) {
		mock := newMockPool(t)
		rows := pgxmock.NewRows(sessionColumns()).AddRow(
			session.ID.String(), "not-a-ulid", session.TokenHash,
			session.UserAgent, session.IPAddress,
			session.ExpiresAt, session.CreatedAt, session.LastSeenAt,
		)
		mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE token_hash = \$1`).
			WithArgs(session.TokenHash).
			WillReturnRows(rows)

		repo := postgres.NewSessionRepository(mock)
		_, err := repo.GetByTokenHash(ctx, session.TokenHash)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_UpdateLastSeen(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()
	lastSeen := time.Now()

	t.Run("updates the timestamp", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE sessions SET last_seen_at = \$2`).
			WithArgs(id.String(), lastSeen).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.UpdateLastSeen(ctx, id, lastSeen))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("missing session returns ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE sessions SET last_seen_at = \$2`).
			WithArgs(id.String(), lastSeen).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewSessionRepository(mock)
		err := repo.UpdateLastSeen(ctx, id, lastSeen)
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("deletes the session", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.Delete(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("missing session returns ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := postgres.NewSessionRepository(mock)
		err := repo.Delete(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_DeleteByAccount(t *testing.T) {
	ctx := context.Background()
	accountID := ulid.Make()

	t.Run("deletes all sessions for the account", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE account_id = \$1`).
			WithArgs(accountID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.DeleteByAccount(ctx, accountID))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("zero sessions is not an error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE account_id = \$1`).
			WithArgs(accountID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.DeleteByAccount(ctx, accountID))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("returns deleted row count", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("DELETE", 7))

		repo := postgres.NewSessionRepository(mock)
		count, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error surfaces", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnError(errors.New("disk full"))

		repo := postgres.NewSessionRepository(mock)
		_, err := repo.DeleteExpired(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}
