// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import (
	"context"
	"crypto/md5" //nolint:gosec // Gravatar addressing, not a security boundary
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Account is the persisted identity record.
//
// PasswordHash is empty for accounts created through an identity provider
// that have never set a local password. ProviderLinks maps a provider name
// to its token; a provider appears at most once per account by
// construction. ResetToken is non-nil only while a password reset request
// is outstanding.
type Account struct {
	ID            ulid.ULID
	Email         string
	PasswordHash  string
	Profile       Profile
	ProviderLinks map[string]string
	ResetToken    *ResetToken
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile contains the mutable, optional profile attributes.
type Profile struct {
	Name     string `json:"name,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
}

// ResetToken is the stored half of an outstanding password reset request.
// Only the SHA-256 hash of the token is persisted; the plaintext goes to
// the account holder by mail and is never stored.
type ResetToken struct {
	TokenHash string
	ExpiresAt time.Time
}

// NewAccount creates an Account with a normalized email and an assigned ID.
// passwordHash may be empty for provider-only accounts.
func NewAccount(email, passwordHash string) (*Account, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:            ulid.Make(),
		Email:         normalized,
		PasswordHash:  passwordHash,
		ProviderLinks: map[string]string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NormalizeEmail trims surrounding whitespace and lowercases an email.
// All store lookups and uniqueness checks operate on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasLocalPassword reports whether the account can authenticate with the
// local email/password strategy.
func (a *Account) HasLocalPassword() bool {
	return a.PasswordHash != ""
}

// LinkProvider adds or replaces the link for a provider.
func (a *Account) LinkProvider(provider, token string) {
	if a.ProviderLinks == nil {
		a.ProviderLinks = map[string]string{}
	}
	a.ProviderLinks[provider] = token
	a.UpdatedAt = time.Now()
}

// UnlinkProvider removes the link for a provider. Returns true if a link
// was removed, false if the provider was not linked.
func (a *Account) UnlinkProvider(provider string) bool {
	if _, ok := a.ProviderLinks[provider]; !ok {
		return false
	}
	delete(a.ProviderLinks, provider)
	a.UpdatedAt = time.Now()
	return true
}

// Gravatar returns the Gravatar URL for the account's email at the given
// pixel size.
func (a *Account) Gravatar(size int) string {
	if size <= 0 {
		size = 200
	}
	sum := md5.Sum([]byte(NormalizeEmail(a.Email))) //nolint:gosec // Gravatar addressing
	return "https://gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=" + strconv.Itoa(size)
}

// CredentialStore manages account persistence. It is the sole writer of
// persisted account state.
//
// Implementations must enforce email uniqueness with a storage-level
// constraint, not an application-level check, and must make every mutation
// durable before returning.
type CredentialStore interface {
	// FindByEmail retrieves an account by normalized email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByID retrieves an account by ID.
	FindByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// FindByValidResetToken retrieves the account holding the given reset
	// token hash, but only while the token is unexpired at now. An expired
	// token yields the same ErrNotFound as an unknown one.
	FindByValidResetToken(ctx context.Context, tokenHash string, now time.Time) (*Account, error)

	// Insert stores a new account. Returns ErrDuplicateEmail if an account
	// with the same email already exists; the existence check and the
	// insert are atomic.
	Insert(ctx context.Context, account *Account) error

	// Update overwrites an existing account. Returns ErrDuplicateEmail if
	// the new email collides with a different account, ErrNotFound if the
	// account no longer exists.
	Update(ctx context.Context, account *Account) error

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetResetToken records an outstanding reset token for an account,
	// replacing any previous one.
	SetResetToken(ctx context.Context, id ulid.ULID, token *ResetToken) error

	// ConsumeResetToken atomically validates the token hash against the
	// stored, unexpired reset token, installs the new password hash, and
	// clears the token. Validation and consumption happen in a single
	// conditional write so a token cannot be spent twice or expire between
	// check and use. Returns ErrNotFound when no valid token matches.
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*Account, error)

	// Remove deletes an account.
	Remove(ctx context.Context, id ulid.ULID) error

	// SweepExpiredResetTokens clears reset tokens whose expiry has passed
	// and returns the number of accounts touched. Lazy expiry at read time
	// is the correctness mechanism; this exists for operator hygiene.
	SweepExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
