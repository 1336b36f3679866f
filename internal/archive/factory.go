package archive

import (
	"context"
	"fmt"

	"medialib/internal/config"
	"medialib/internal/library"
)

// NewArchiveFromConfig creates an Archive implementation based on the
// archive config type. Type "none" (or an empty type) disables mirroring
// and returns a nil archive.
func NewArchiveFromConfig(cfg config.ArchiveConfig) (library.Archive, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryArchive(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem archive requires root to be set")
		}
		return NewFileSystemArchive(cfg.Root)
	case "s3":
		return NewS3Archive(context.Background(), S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			KeyPrefix:       cfg.KeyPrefix,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
