package library

import "io"

// Archive is an optional content-addressed mirror of ingested files.
// All operations stream through io.Reader/io.Writer to support large
// files without loading them into memory.
type Archive interface {
	// PutContent stores content identified by its checksum.
	// The operation is idempotent: storing the same checksum twice is safe.
	PutContent(checksum string, r io.Reader) error

	// GetContent retrieves content by checksum and writes it to w.
	GetContent(checksum string, w io.Writer) error

	// HasContent reports whether content with the checksum is stored.
	HasContent(checksum string) (bool, error)

	// ValidateSetup verifies that the archive is accessible and configured.
	ValidateSetup() error
}

// Encryptor handles encryption of archived content.
// Encryption uses the public key only, with no user intervention.
// Decryption requires a passphrase to unlock the private key, producing a
// DecryptionContext for the session.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `keys init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext that can decrypt data for the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if the key material exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the
// duration of a session. The unlocked key is never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
