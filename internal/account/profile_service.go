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

// ProfileUpdate is a structured partial update for profile attributes.
// A nil field clears the stored attribute to the empty string; a non-nil
// field overwrites it. This "absent clears" rule is deliberate: the profile
// form always posts the full attribute set, so an omitted value means the
// account holder blanked it.
type ProfileUpdate struct {
	Name     *string
	Gender   *string
	Location *string
	Website  *string
}

// Apply materializes the update into a Profile.
func (u ProfileUpdate) Apply() Profile {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return Profile{
		Name:     deref(u.Name),
		Gender:   deref(u.Gender),
		Location: deref(u.Location),
		Website:  deref(u.Website),
	}
}

// ProfileService handles mutations on an already-authenticated principal.
// Callers are responsible for resolving the principal first (see
// AuthService.CurrentPrincipal); these operations trust the given ID.
type ProfileService struct {
	store     CredentialStore
	hasher    PasswordHasher
	validator Validator
	logger    *slog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store CredentialStore, hasher PasswordHasher, validator Validator) (*ProfileService, error) {
	return NewProfileServiceWithLogger(store, hasher, validator, slog.Default())
}

// NewProfileServiceWithLogger creates a ProfileService with an explicit logger.
func NewProfileServiceWithLogger(store CredentialStore, hasher PasswordHasher, validator Validator, logger *slog.Logger) (*ProfileService, error) {
	if store == nil {
		return nil, oops.Code("PROFILE_INVALID_DEPS").Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Code("PROFILE_INVALID_DEPS").Errorf("password hasher is required")
	}
	if validator == nil {
		return nil, oops.Code("PROFILE_INVALID_DEPS").Errorf("validator is required")
	}
	if logger == nil {
		return nil, oops.Code("PROFILE_INVALID_DEPS").Errorf("logger is required")
	}
	return &ProfileService{
		store:     store,
		hasher:    hasher,
		validator: validator,
		logger:    logger,
	}, nil
}

// UpdateProfile overwrites the account's email and profile attributes.
// Email is required; profile fields follow the ProfileUpdate semantics.
func (s *ProfileService) UpdateProfile(ctx context.Context, id ulid.ULID, email string, fields ProfileUpdate) (*Account, error) {
	if fieldErrs := s.validator.ValidateEmail(email); len(fieldErrs) > 0 {
		return nil, validationError(fieldErrs)
	}

	acct, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", id.String()).
				Wrap(ErrNotFound)
		}
		return nil, oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "find account by id").
			Wrap(err)
	}

	acct.Email = NormalizeEmail(email)
	acct.Profile = fields.Apply()

	if err := s.store.Update(ctx, acct); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", acct.Email).
				Wrap(ErrDuplicateEmail)
		case errors.Is(err, ErrNotFound):
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", id.String()).
				Wrap(ErrNotFound)
		default:
			return nil, oops.Code("PROFILE_UPDATE_FAILED").
				With("operation", "update account").
				With("account_id", id.String()).
				Wrap(err)
		}
	}
	return acct, nil
}

// ChangePassword replaces the account's password hash.
func (s *ProfileService) ChangePassword(ctx context.Context, id ulid.ULID, newPassword string) error {
	if fieldErrs := s.validator.ValidatePassword(newPassword); len(fieldErrs) > 0 {
		return validationError(fieldErrs)
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("PROFILE_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.store.UpdatePassword(ctx, id, newHash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", id.String()).
				Wrap(ErrNotFound)
		}
		return oops.Code("PROFILE_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			With("account_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password changed", "account_id", id.String())
	return nil
}

// UnlinkProvider removes a third-party identity provider link. Unlinking a
// provider that is not linked is a no-op success, not an error.
func (s *ProfileService) UnlinkProvider(ctx context.Context, id ulid.ULID, provider string) error {
	acct, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", id.String()).
				Wrap(ErrNotFound)
		}
		return oops.Code("PROFILE_UNLINK_FAILED").
			With("operation", "find account by id").
			Wrap(err)
	}

	if !acct.UnlinkProvider(provider) {
		return nil
	}

	if err := s.store.Update(ctx, acct); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", id.String()).
				Wrap(ErrNotFound)
		}
		return oops.Code("PROFILE_UNLINK_FAILED").
			With("operation", "update account").
			With("account_id", id.String()).
			With("provider", provider).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "provider unlinked",
		"account_id", id.String(),
		"provider", provider,
	)
	return nil
}
