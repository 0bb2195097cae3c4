// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an insert or update would collide
	// with another account's email.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrInvalidCredentials is returned on login failure. The same value is
	// used for an unknown email and a wrong password so callers cannot
	// distinguish the two.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a reset token is unknown or expired.
	// The same value is used for both cases.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrValidation is returned when input fails the validator gate.
	ErrValidation = errors.New("validation failed")
)
