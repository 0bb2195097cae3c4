// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import (
	"regexp"

	"github.com/samber/oops"
)

// Password validation constraints.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 512
)

// emailRegex is a pragmatic shape check, not an RFC 5322 parser. Delivery
// failures are the mail collaborator's problem; this only gates obvious
// garbage before any mutation happens.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FieldError describes a single validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Validator is the input-syntax gate consulted before any mutation. An
// empty slice means the input passed.
type Validator interface {
	ValidateSignup(email, password string) []FieldError
	ValidateEmail(email string) []FieldError
	ValidatePassword(password string) []FieldError
}

// BasicValidator implements Validator with shape checks only.
type BasicValidator struct{}

// NewBasicValidator creates a new BasicValidator.
func NewBasicValidator() *BasicValidator {
	return &BasicValidator{}
}

// ValidateSignup validates email and password together.
func (v *BasicValidator) ValidateSignup(email, password string) []FieldError {
	var errs []FieldError
	errs = append(errs, v.ValidateEmail(email)...)
	errs = append(errs, v.ValidatePassword(password)...)
	return errs
}

// ValidateEmail validates the shape of an email address.
func (v *BasicValidator) ValidateEmail(email string) []FieldError {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return []FieldError{{Field: "email", Message: "email cannot be empty"}}
	}
	if !emailRegex.MatchString(normalized) {
		return []FieldError{{Field: "email", Message: "email is not a valid address"}}
	}
	return nil
}

// ValidatePassword validates password length bounds. Length is measured in
// bytes; no Unicode normalization is applied.
func (v *BasicValidator) ValidatePassword(password string) []FieldError {
	if len(password) < MinPasswordLength {
		return []FieldError{{Field: "password", Message: "password must be at least 8 characters"}}
	}
	if len(password) > MaxPasswordLength {
		return []FieldError{{Field: "password", Message: "password must be at most 512 characters"}}
	}
	return nil
}

// validationError wraps field failures in the shared taxonomy so callers
// can surface them verbatim.
func validationError(fields []FieldError) error {
	details := make(map[string]string, len(fields))
	for _, f := range fields {
		details[f.Field] = f.Message
	}
	return oops.Code("ACCOUNT_VALIDATION_FAILED").
		With("fields", details).
		Wrap(ErrValidation)
}

// Compile-time interface check.
var _ Validator = (*BasicValidator)(nil)
