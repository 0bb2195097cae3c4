// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/account"
)

func TestNewAccount(t *testing.T) {
	t.Run("creates account with normalized email", func(t *testing.T) {
		acct, err := account.NewAccount("  Alice@Example.COM ", "somehash")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, acct.ID)
		assert.Equal(t, "alice@example.com", acct.Email)
		assert.Equal(t, "somehash", acct.PasswordHash)
		assert.NotNil(t, acct.ProviderLinks)
		assert.Nil(t, acct.ResetToken)
		assert.False(t, acct.CreatedAt.IsZero())
	})

	t.Run("allows empty password hash for provider-only accounts", func(t *testing.T) {
		acct, err := account.NewAccount("bob@example.com", "")
		require.NoError(t, err)
		assert.False(t, acct.HasLocalPassword())
	})

	t.Run("rejects empty email", func(t *testing.T) {
		_, err := account.NewAccount("   ", "somehash")
		assert.Error(t, err)
	})
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Alice@Example.COM", "alice@example.com"},
		{"trims whitespace", "  alice@example.com\t", "alice@example.com"},
		{"already normalized", "alice@example.com", "alice@example.com"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, account.NormalizeEmail(tt.input))
		})
	}
}

func TestAccount_ProviderLinks(t *testing.T) {
	t.Run("link then unlink", func(t *testing.T) {
		acct, err := account.NewAccount("alice@example.com", "somehash")
		require.NoError(t, err)

		acct.LinkProvider("github", "gh-token")
		assert.Equal(t, "gh-token", acct.ProviderLinks["github"])

		removed := acct.UnlinkProvider("github")
		assert.True(t, removed)
		assert.NotContains(t, acct.ProviderLinks, "github")
	})

	t.Run("unlink of unlinked provider reports false", func(t *testing.T) {
		acct, err := account.NewAccount("alice@example.com", "somehash")
		require.NoError(t, err)

		assert.False(t, acct.UnlinkProvider("twitter"))
	})

	t.Run("relink replaces token", func(t *testing.T) {
		acct, err := account.NewAccount("alice@example.com", "somehash")
		require.NoError(t, err)

		acct.LinkProvider("github", "old-token")
		acct.LinkProvider("github", "new-token")
		assert.Equal(t, "new-token", acct.ProviderLinks["github"])
		assert.Len(t, acct.ProviderLinks, 1)
	})

	t.Run("link initializes nil map", func(t *testing.T) {
		acct := &account.Account{Email: "alice@example.com"}
		acct.LinkProvider("github", "gh-token")
		assert.Equal(t, "gh-token", acct.ProviderLinks["github"])
	})
}

func TestAccount_Gravatar(t *testing.T) {
	acct, err := account.NewAccount("alice@example.com", "somehash")
	require.NoError(t, err)

	t.Run("stable for normalized email", func(t *testing.T) {
		other := &account.Account{Email: "  ALICE@example.com "}
		assert.Equal(t, acct.Gravatar(80), other.Gravatar(80))
	})

	t.Run("includes requested size", func(t *testing.T) {
		assert.Contains(t, acct.Gravatar(128), "?s=128")
	})

	t.Run("defaults size when non-positive", func(t *testing.T) {
		assert.Contains(t, acct.Gravatar(0), "?s=200")
	})
}
