package testutil

import (
	"notebox/internal/nb"
	"notebox/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() nb.Vault {
	return vault.NewMemoryVault()
}
