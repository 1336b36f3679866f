package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"medialib/internal/library"
)

// SHA256Hasher computes streaming SHA-256 digests of file contents.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Digest returns the hex-encoded SHA-256 checksum of the file's bytes.
func (h *SHA256Hasher) Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", fmt.Errorf("hashing file: %w", err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Compile-time check that SHA256Hasher implements the Hasher interface
var _ library.Hasher = (*SHA256Hasher)(nil)
