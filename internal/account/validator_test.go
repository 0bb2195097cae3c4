// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accountd/accountd/internal/account"
)

func TestBasicValidator_ValidateEmail(t *testing.T) {
	v := account.NewBasicValidator()

	t.Run("accepts plain address", func(t *testing.T) {
		assert.Empty(t, v.ValidateEmail("alice@example.com"))
	})

	t.Run("accepts unnormalized address", func(t *testing.T) {
		assert.Empty(t, v.ValidateEmail("  Alice@Example.COM "))
	})

	t.Run("rejects empty", func(t *testing.T) {
		errs := v.ValidateEmail("")
		assert.Len(t, errs, 1)
		assert.Equal(t, "email", errs[0].Field)
	})

	t.Run("rejects missing at sign", func(t *testing.T) {
		assert.NotEmpty(t, v.ValidateEmail("alice.example.com"))
	})

	t.Run("rejects missing domain dot", func(t *testing.T) {
		assert.NotEmpty(t, v.ValidateEmail("alice@localhost"))
	})

	t.Run("rejects embedded whitespace", func(t *testing.T) {
		assert.NotEmpty(t, v.ValidateEmail("alice smith@example.com"))
	})
}

func TestBasicValidator_ValidatePassword(t *testing.T) {
	v := account.NewBasicValidator()

	t.Run("accepts minimum length", func(t *testing.T) {
		assert.Empty(t, v.ValidatePassword("12345678"))
	})

	t.Run("rejects too short", func(t *testing.T) {
		errs := v.ValidatePassword("1234567")
		assert.Len(t, errs, 1)
		assert.Equal(t, "password", errs[0].Field)
	})

	t.Run("accepts maximum length", func(t *testing.T) {
		assert.Empty(t, v.ValidatePassword(strings.Repeat("x", account.MaxPasswordLength)))
	})

	t.Run("rejects over maximum length", func(t *testing.T) {
		assert.NotEmpty(t, v.ValidatePassword(strings.Repeat("x", account.MaxPasswordLength+1)))
	})
}

func TestBasicValidator_ValidateSignup(t *testing.T) {
	v := account.NewBasicValidator()

	t.Run("passes valid input", func(t *testing.T) {
		assert.Empty(t, v.ValidateSignup("alice@example.com", "password123"))
	})

	t.Run("collects failures from both fields", func(t *testing.T) {
		errs := v.ValidateSignup("not-an-email", "short")
		assert.Len(t, errs, 2)
	})
}
