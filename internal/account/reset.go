// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes   = 32        // 32 bytes = 64 hex chars
	DefaultResetTTL   = time.Hour // window in which a reset token is valid
	DefaultSessionTTL = 24 * time.Hour
)

// NewResetToken builds the stored half of a reset token from its plaintext
// and an expiry time.
func NewResetToken(token string, expiresAt time.Time) (*ResetToken, error) {
	if token == "" {
		return nil, oops.Code("RESET_TOKEN_EMPTY").Errorf("reset token cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &ResetToken{
		TokenHash: HashResetToken(token),
		ExpiresAt: expiresAt,
	}, nil
}

// ValidAt reports whether the token is still usable at t. The window is
// half-open: a token issued with expiry T+TTL is valid strictly before
// T+TTL and invalid at exactly T+TTL.
func (r *ResetToken) ValidAt(t time.Time) bool {
	return t.Before(r.ExpiresAt)
}

// GenerateResetToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is mailed to the account holder; the hash is stored.
func GenerateResetToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashResetToken(token)

	return token, hash, nil
}

// VerifyResetToken checks if the plaintext token matches the stored hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifyResetToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashResetToken(token)
	// Both are hex-encoded SHA256 hashes (64 chars), use constant-time compare
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// HashResetToken computes the SHA256 hash of a token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
