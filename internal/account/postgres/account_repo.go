// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

// Package postgres provides PostgreSQL-backed implementations of the
// account package's persistence interfaces.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/account"
)

// AccountRepository implements account.CredentialStore using PostgreSQL.
//
// Email uniqueness is enforced by the accounts_email_unique index, so the
// existence check and the write are one atomic statement.
type AccountRepository struct {
	pool DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool DB) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// isUniqueEmailViolation reports whether err is the unique index on
// accounts.email rejecting a write.
func isUniqueEmailViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "accounts_email_unique"
}

// Insert stores a new account.
func (r *AccountRepository) Insert(ctx context.Context, acct *account.Account) error {
	profileJSON, err := json.Marshal(acct.Profile)
	if err != nil {
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "marshal profile").
			Wrap(err)
	}

	linksJSON, err := json.Marshal(acct.ProviderLinks)
	if err != nil {
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "marshal provider links").
			Wrap(err)
	}

	var resetHash *string
	var resetExpiresAt *time.Time
	if acct.ResetToken != nil {
		resetHash = &acct.ResetToken.TokenHash
		resetExpiresAt = &acct.ResetToken.ExpiresAt
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, profile, provider_links,
			reset_token_hash, reset_token_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		acct.ID.String(),
		acct.Email,
		acct.PasswordHash,
		profileJSON,
		linksJSON,
		resetHash,
		resetExpiresAt,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		if isUniqueEmailViolation(err) {
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", acct.Email).
				Wrap(account.ErrDuplicateEmail)
		}
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert account").
			With("email", acct.Email).
			Wrap(err)
	}
	return nil
}

// FindByEmail retrieves an account by normalized email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, profile, provider_links,
		       reset_token_hash, reset_token_expires_at, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`, email)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_FIND_BY_EMAIL_FAILED").
			With("operation", "find account by email").
			With("email", email).
			Wrap(err)
	}
	return acct, nil
}

// FindByID retrieves an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, profile, provider_links,
		       reset_token_hash, reset_token_expires_at, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id.String())

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_FIND_BY_ID_FAILED").
			With("operation", "find account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// FindByValidResetToken retrieves the account holding an unexpired reset
// token. The expiry window is half-open: a token is gone at exactly its
// expiry instant.
func (r *AccountRepository) FindByValidResetToken(ctx context.Context, tokenHash string, now time.Time) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, profile, provider_links,
		       reset_token_hash, reset_token_expires_at, created_at, updated_at
		FROM accounts
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2
	`, tokenHash, now)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_FIND_BY_RESET_TOKEN_FAILED").
			With("operation", "find account by reset token").
			Wrap(err)
	}
	return acct, nil
}

// Update overwrites an existing account.
func (r *AccountRepository) Update(ctx context.Context, acct *account.Account) error {
	profileJSON, err := json.Marshal(acct.Profile)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "marshal profile").
			Wrap(err)
	}

	linksJSON, err := json.Marshal(acct.ProviderLinks)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "marshal provider links").
			Wrap(err)
	}

	var resetHash *string
	var resetExpiresAt *time.Time
	if acct.ResetToken != nil {
		resetHash = &acct.ResetToken.TokenHash
		resetExpiresAt = &acct.ResetToken.ExpiresAt
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			email = $2,
			password_hash = $3,
			profile = $4,
			provider_links = $5,
			reset_token_hash = $6,
			reset_token_expires_at = $7,
			updated_at = $8
		WHERE id = $1
	`,
		acct.ID.String(),
		acct.Email,
		acct.PasswordHash,
		profileJSON,
		linksJSON,
		resetHash,
		resetExpiresAt,
		time.Now(),
	)
	if err != nil {
		if isUniqueEmailViolation(err) {
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", acct.Email).
				Wrap(account.ErrDuplicateEmail)
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", acct.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", acct.ID.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// UpdatePassword updates only the password hash for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// SetResetToken records an outstanding reset token, replacing any
// previous one.
func (r *AccountRepository) SetResetToken(ctx context.Context, id ulid.ULID, token *account.ResetToken) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, id.String(), token.TokenHash, token.ExpiresAt, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_SET_RESET_TOKEN_FAILED").
			With("operation", "set reset token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// ConsumeResetToken validates and spends a reset token in one conditional
// UPDATE. The WHERE clause carries the validity check, so an expired,
// unknown, or already-spent token affects zero rows and there is no window
// between check and use.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts SET
			password_hash = $2,
			reset_token_hash = NULL,
			reset_token_expires_at = NULL,
			updated_at = $3
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $3
		RETURNING id, email, password_hash, profile, provider_links,
		          reset_token_hash, reset_token_expires_at, created_at, updated_at
	`, tokenHash, newPasswordHash, now)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_CONSUME_RESET_TOKEN_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}
	return acct, nil
}

// Remove deletes an account.
func (r *AccountRepository) Remove(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM accounts WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("ACCOUNT_REMOVE_FAILED").
			With("operation", "delete account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// SweepExpiredResetTokens clears reset tokens whose expiry has passed and
// returns the number of accounts touched.
func (r *AccountRepository) SweepExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_hash IS NOT NULL AND reset_token_expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("ACCOUNT_SWEEP_RESET_TOKENS_FAILED").
			With("operation", "sweep expired reset tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		idStr          string
		email          string
		passwordHash   string
		profileJSON    []byte
		linksJSON      []byte
		resetHash      *string
		resetExpiresAt *time.Time
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&passwordHash,
		&profileJSON,
		&linksJSON,
		&resetHash,
		&resetExpiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	var profile account.Profile
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return nil, oops.Code("ACCOUNT_INVALID_PROFILE").
				With("operation", "unmarshal profile").
				Wrap(err)
		}
	}

	links := map[string]string{}
	if len(linksJSON) > 0 {
		if err := json.Unmarshal(linksJSON, &links); err != nil {
			return nil, oops.Code("ACCOUNT_INVALID_PROVIDER_LINKS").
				With("operation", "unmarshal provider links").
				Wrap(err)
		}
	}

	var reset *account.ResetToken
	if resetHash != nil && resetExpiresAt != nil {
		reset = &account.ResetToken{
			TokenHash: *resetHash,
			ExpiresAt: *resetExpiresAt,
		}
	}

	return &account.Account{
		ID:            id,
		Email:         email,
		PasswordHash:  passwordHash,
		Profile:       profile,
		ProviderLinks: links,
		ResetToken:    reset,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

// Compile-time interface check.
var _ account.CredentialStore = (*AccountRepository)(nil)
