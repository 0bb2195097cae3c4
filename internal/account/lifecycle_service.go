// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionInvalidator drops every session belonging to an account. It is
// injected as a callback so account deletion does not create a dependency
// cycle between the lifecycle and session layers.
type SessionInvalidator func(ctx context.Context, accountID ulid.ULID) error

// LifecycleService handles account creation and destruction.
type LifecycleService struct {
	store      CredentialStore
	hasher     PasswordHasher
	validator  Validator
	invalidate SessionInvalidator
	metrics    *Metrics
	logger     *slog.Logger
}

// NewLifecycleService creates a new LifecycleService.
// invalidate may be nil when no session layer is wired.
func NewLifecycleService(store CredentialStore, hasher PasswordHasher, validator Validator, invalidate SessionInvalidator) (*LifecycleService, error) {
	return NewLifecycleServiceWithLogger(store, hasher, validator, invalidate, slog.Default())
}

// NewLifecycleServiceWithLogger creates a LifecycleService with an explicit logger.
func NewLifecycleServiceWithLogger(store CredentialStore, hasher PasswordHasher, validator Validator, invalidate SessionInvalidator, logger *slog.Logger) (*LifecycleService, error) {
	if store == nil {
		return nil, oops.Code("LIFECYCLE_INVALID_DEPS").Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Code("LIFECYCLE_INVALID_DEPS").Errorf("password hasher is required")
	}
	if validator == nil {
		return nil, oops.Code("LIFECYCLE_INVALID_DEPS").Errorf("validator is required")
	}
	if logger == nil {
		return nil, oops.Code("LIFECYCLE_INVALID_DEPS").Errorf("logger is required")
	}
	return &LifecycleService{
		store:      store,
		hasher:     hasher,
		validator:  validator,
		invalidate: invalidate,
		logger:     logger,
	}, nil
}

// SetMetrics attaches Prometheus counters. Call during wiring, before the
// service handles traffic.
func (s *LifecycleService) SetMetrics(m *Metrics) { s.metrics = m }

// Signup creates a new account from an email and raw password.
//
// A duplicate email rejects the new registration and leaves the existing
// account untouched.
func (s *LifecycleService) Signup(ctx context.Context, email, rawPassword string) (*Account, error) {
	if fieldErrs := s.validator.ValidateSignup(email, rawPassword); len(fieldErrs) > 0 {
		s.metrics.recordSignup("invalid")
		return nil, validationError(fieldErrs)
	}

	passwordHash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		s.metrics.recordSignup("error")
		return nil, oops.Code("ACCOUNT_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	acct, err := NewAccount(email, passwordHash)
	if err != nil {
		s.metrics.recordSignup("error")
		return nil, err
	}

	if err := s.store.Insert(ctx, acct); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			s.metrics.recordSignup("duplicate")
			return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", acct.Email).
				Wrap(ErrDuplicateEmail)
		}
		s.metrics.recordSignup("error")
		return nil, oops.Code("ACCOUNT_SIGNUP_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}

	s.metrics.recordSignup("success")
	s.logger.InfoContext(ctx, "account created", "account_id", acct.ID.String())
	return acct, nil
}

// DeleteAccount removes an account and invalidates its active sessions.
func (s *LifecycleService) DeleteAccount(ctx context.Context, id ulid.ULID) error {
	if err := s.store.Remove(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.recordDelete("not_found")
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", id.String()).
				Wrap(ErrNotFound)
		}
		s.metrics.recordDelete("error")
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "remove account").
			With("account_id", id.String()).
			Wrap(err)
	}

	if s.invalidate != nil {
		if err := s.invalidate(ctx, id); err != nil {
			// The account is already gone; surface the failure rather than
			// pretend the sessions were dropped.
			s.metrics.recordDelete("error")
			return oops.Code("ACCOUNT_SESSION_INVALIDATION_FAILED").
				With("account_id", id.String()).
				Wrap(err)
		}
	}

	s.metrics.recordDelete("success")
	s.logger.InfoContext(ctx, "account deleted", "account_id", id.String())
	return nil
}
