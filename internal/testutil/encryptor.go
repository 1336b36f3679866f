package testutil

import (
	"medialib/internal/encryption"
	"medialib/internal/library"
)

// NewTestEncryptor creates a deterministic encryptor for testing.
func NewTestEncryptor() library.Encryptor {
	return encryption.NewTestEncryptor()
}
