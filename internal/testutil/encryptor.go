package testutil

import (
	"notebox/internal/encryption"
	"notebox/internal/nb"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() nb.Encryptor {
	return encryption.NewTestEncryptor()
}
