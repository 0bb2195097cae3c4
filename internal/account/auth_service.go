// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/accountd/accountd/pkg/errutil"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AuthService provides login, logout, the current-principal lookup, and
// the password reset flow.
//
// SessionTTL and ResetTTL default to DefaultSessionTTL and DefaultResetTTL.
// Override them during wiring, before the service handles traffic.
type AuthService struct {
	store     CredentialStore
	sessions  SessionRepository
	hasher    PasswordHasher
	mailer    Mailer
	validator Validator
	metrics   *Metrics
	logger    *slog.Logger

	SessionTTL time.Duration
	ResetTTL   time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(store CredentialStore, sessions SessionRepository, hasher PasswordHasher, mailer Mailer, validator Validator) (*AuthService, error) {
	return NewAuthServiceWithLogger(store, sessions, hasher, mailer, validator, slog.Default())
}

// NewAuthServiceWithLogger creates an AuthService with an explicit logger.
func NewAuthServiceWithLogger(store CredentialStore, sessions SessionRepository, hasher PasswordHasher, mailer Mailer, validator Validator, logger *slog.Logger) (*AuthService, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("credential store is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("mailer is required")
	}
	if validator == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("validator is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("logger is required")
	}
	return &AuthService{
		store:      store,
		sessions:   sessions,
		hasher:     hasher,
		mailer:     mailer,
		validator:  validator,
		logger:     logger,
		SessionTTL: DefaultSessionTTL,
		ResetTTL:   DefaultResetTTL,
	}, nil
}

// SetMetrics attaches Prometheus counters. Call during wiring, before the
// service handles traffic.
func (s *AuthService) SetMetrics(m *Metrics) { s.metrics = m }

// Login authenticates an account by email and password and creates a session.
// Returns the session, plaintext token, and any error.
// An unknown email and a wrong password produce the identical error value,
// and password verification runs in both cases to keep response time
// constant.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*Session, string, error) {
	acct, lookupErr := s.store.FindByEmail(ctx, NormalizeEmail(email))

	// Determine which hash to verify against (real or dummy for timing
	// attack prevention). Provider-only accounts have no local password and
	// also take the dummy path.
	targetHash := dummyPasswordHash
	usable := false

	switch {
	case lookupErr == nil && acct.HasLocalPassword():
		targetHash = acct.PasswordHash
		usable = true
	case lookupErr == nil:
		// account exists but has no local credential
	case errors.Is(lookupErr, ErrNotFound):
		// dummy path
	default:
		s.metrics.recordLogin("error")
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find account by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !usable {
			s.metrics.recordLogin("invalid")
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		s.metrics.recordLogin("error")
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !usable || !valid {
		s.metrics.recordLogin("invalid")
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Transparently upgrade legacy hashes on successful verification.
	// Login succeeds even if the upgrade write fails.
	if s.hasher.NeedsUpgrade(acct.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			if err := s.store.UpdatePassword(ctx, acct.ID, newHash); err != nil {
				errutil.LogError(s.logger, "password hash upgrade failed", err)
			}
		}
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		s.metrics.recordLogin("error")
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(acct.ID, tokenHash, userAgent, ipAddress, time.Now().Add(s.SessionTTL))
	if err != nil {
		s.metrics.recordLogin("error")
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		s.metrics.recordLogin("error")
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.metrics.recordLogin("success")
	return session, token, nil
}

// Logout invalidates the session identified by token. It is idempotent:
// an empty, unknown, or already-invalidated token is a no-op, never an
// error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost a race with another logout; same outcome.
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// ValidateSession validates a session token and returns the session if valid.
// Also updates the LastSeenAt timestamp.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	// Expiry is checked lazily here; no background sweep is required for
	// correctness.
	if session.IsExpired() {
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	// Update last seen timestamp (non-blocking, ignore errors)
	_ = s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck // Best effort, validation succeeds regardless

	return session, nil
}

// CurrentPrincipal resolves a session token to the authenticated Account.
func (s *AuthService) CurrentPrincipal(ctx context.Context, token string) (*Account, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	acct, err := s.store.FindByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The account vanished under the session; drop the orphan.
			_ = s.sessions.Delete(ctx, session.ID) //nolint:errcheck // Best effort cleanup
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("AUTH_PRINCIPAL_FAILED").
			With("operation", "find account by id").
			Wrap(err)
	}
	return acct, nil
}

// RequestReset issues a password reset token for the account with the
// given email and hands it to the mail collaborator. Returns the plaintext
// token.
//
// An unknown email is reported to the caller. That mirrors the historical
// behavior of this flow; a generic response regardless of existence is a
// known hardening opportunity.
func (s *AuthService) RequestReset(ctx context.Context, email string) (string, error) {
	acct, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.recordReset("request", "not_found")
			return "", oops.Code("ACCOUNT_NOT_FOUND").
				With("email", NormalizeEmail(email)).
				Wrap(ErrNotFound)
		}
		s.metrics.recordReset("request", "error")
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find account by email").
			Wrap(err)
	}

	token, _, err := GenerateResetToken()
	if err != nil {
		s.metrics.recordReset("request", "error")
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	reset, err := NewResetToken(token, time.Now().Add(s.ResetTTL))
	if err != nil {
		s.metrics.recordReset("request", "error")
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "build reset token").
			Wrap(err)
	}

	// Replaces any previous outstanding token for the account.
	if err := s.store.SetResetToken(ctx, acct.ID, reset); err != nil {
		s.metrics.recordReset("request", "error")
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist reset token").
			With("account_id", acct.ID.String()).
			Wrap(err)
	}

	// Fire-and-forget: the token is already persisted, so a mail failure is
	// logged and the request still succeeds.
	if err := s.mailer.Send(ctx, MailMessage{
		To:          acct.Email,
		TemplateKey: MailTemplateResetRequest,
		Params:      map[string]string{"token": token},
	}); err != nil {
		errutil.LogError(s.logger, "reset request mail failed", err)
	}

	s.metrics.recordReset("request", "success")
	return token, nil
}

// ValidateResetToken checks a reset token and returns the account it
// belongs to. An unknown token and an expired token produce the identical
// error value.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	acct, err := s.store.FindByValidResetToken(ctx, HashResetToken(token), time.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "find account by reset token").
			Wrap(err)
	}
	return acct, nil
}

// ConsumeReset spends a reset token: it installs the new password, clears
// the token, invalidates existing sessions, and logs the account in.
// Returns the account, the new session, and its plaintext token.
//
// Validation and consumption are one conditional store write, so a token
// that expires between check and use is still rejected, and a second
// consume of the same token always fails.
func (s *AuthService) ConsumeReset(ctx context.Context, token, newPassword string) (*Account, *Session, string, error) {
	if token == "" {
		s.metrics.recordReset("consume", "invalid")
		return nil, nil, "", oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}
	if fieldErrs := s.validator.ValidatePassword(newPassword); len(fieldErrs) > 0 {
		s.metrics.recordReset("consume", "invalid")
		return nil, nil, "", validationError(fieldErrs)
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.metrics.recordReset("consume", "error")
		return nil, nil, "", oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	acct, err := s.store.ConsumeResetToken(ctx, HashResetToken(token), newHash, time.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.recordReset("consume", "invalid")
			return nil, nil, "", oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		s.metrics.recordReset("consume", "error")
		return nil, nil, "", oops.Code("RESET_CONSUME_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	// The credential changed, so every session issued under the old
	// password is dropped before the fresh login below.
	if err := s.sessions.DeleteByAccount(ctx, acct.ID); err != nil {
		errutil.LogError(s.logger, "session invalidation after reset failed", err)
	}

	sessionToken, tokenHash, err := GenerateSessionToken()
	if err != nil {
		s.metrics.recordReset("consume", "error")
		return nil, nil, "", oops.Code("RESET_CONSUME_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(acct.ID, tokenHash, "", "", time.Now().Add(s.SessionTTL))
	if err != nil {
		s.metrics.recordReset("consume", "error")
		return nil, nil, "", oops.Code("RESET_CONSUME_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		s.metrics.recordReset("consume", "error")
		return nil, nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	// The password change already happened; a notification failure is
	// logged, never rolled back.
	if err := s.mailer.Send(ctx, MailMessage{
		To:          acct.Email,
		TemplateKey: MailTemplatePasswordChanged,
	}); err != nil {
		errutil.LogError(s.logger, "password changed mail failed", err)
	}

	s.metrics.recordReset("consume", "success")
	s.logger.InfoContext(ctx, "password reset consumed", "account_id", acct.ID.String())
	return acct, session, sessionToken, nil
}
