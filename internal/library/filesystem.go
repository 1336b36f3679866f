package library

import (
	"io"
	"io/fs"

	"medialib/internal/model"
)

// FilesystemManager provides an interface for physical file operations.
// It abstracts file access to enable testing without touching the real
// filesystem. Paths are absolute physical paths.
type FilesystemManager interface {
	// Stat returns file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// Exists reports whether a file or directory exists at path.
	Exists(path string) (bool, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// MkdirAll creates the directory and any missing ancestors.
	MkdirAll(path string) error

	// Move renames src to dest. The destination's parent must exist.
	Move(src, dest string) error

	// Copy copies src to dest, preserving the source's timestamps.
	Copy(src, dest string) error

	// Remove deletes a single file.
	Remove(path string) error

	// Glob returns paths matching the pattern (filepath.Match syntax).
	Glob(pattern string) ([]string, error)
}

// Scanner enumerates media files under a physical root.
// Scans are finite and restartable; results carry no index state.
type Scanner interface {
	Scan(root string) ([]model.ScannedFile, error)
}

// Hasher computes a deterministic content digest for a file.
// The digest is stable across moves and renames.
type Hasher interface {
	Digest(path string) (string, error)
}

// digestCache memoizes digests within a single request so a file is
// hashed at most once per operation.
type digestCache struct {
	hasher  Hasher
	digests map[string]string
}

func newDigestCache(h Hasher) *digestCache {
	return &digestCache{hasher: h, digests: make(map[string]string)}
}

func (c *digestCache) get(path string) (string, error) {
	if d, ok := c.digests[path]; ok {
		return d, nil
	}
	d, err := c.hasher.Digest(path)
	if err != nil {
		return "", err
	}
	c.digests[path] = d
	return d, nil
}
