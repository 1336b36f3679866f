package library

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// SyncResult reports the outcome of a device file synchronization.
type SyncResult struct {
	// TargetVirtualPath is where the content lives under management.
	TargetVirtualPath string
	// AssetID is set when the content matched an already-indexed asset.
	AssetID string
	// AlreadyExists is true when no bytes were copied because identical
	// content is already under management.
	AlreadyExists bool
}

// SyncDeviceFile copies a file from the actor's device into the per-user
// backup subtree, preserving the relative directory layout and the
// original timestamps. Content already under management (matched by
// digest) is never copied twice. The destination folder is registered in
// the index; the file itself is indexed later by the external scan
// collaborator.
func (s *Service) SyncDeviceFile(ctx context.Context, devicePath string, actor Actor) (*SyncResult, error) {
	if strings.TrimSpace(devicePath) == "" {
		return nil, fmt.Errorf("blank device path: %w", ErrInvalidArgument)
	}

	deviceRoot := s.resolver.DeviceRoot(actor.UserID)
	if deviceRoot == "" {
		return nil, fmt.Errorf("no device root configured for user %s: %w", actor.UserID, ErrForbidden)
	}
	src := filepath.Clean(devicePath)
	if !HasPathPrefix(src, deviceRoot) {
		return nil, fmt.Errorf("path outside device root: %s: %w", devicePath, ErrForbidden)
	}
	if exists, err := s.fsmgr.Exists(src); err != nil {
		return nil, fmt.Errorf("checking source: %w", err)
	} else if !exists {
		return nil, fmt.Errorf("source file %s: %w", devicePath, ErrNotFound)
	}

	// One digest per file per request; collision checks below reuse it.
	cache := newDigestCache(s.hasher)
	digest, err := cache.get(src)
	if err != nil {
		return nil, fmt.Errorf("hashing source: %w", err)
	}

	// Content-level dedup: identical bytes anywhere under management win.
	existing, err := s.store.FindAssetByDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("searching index by digest: %w", err)
	}
	if existing != nil {
		if phys, perr := s.resolver.physical(existing.VirtualPath); perr == nil {
			if ok, _ := s.fsmgr.Exists(phys); ok {
				s.logger.Info("dedup hit", "digest", digest, "asset", existing.ID)
				return &SyncResult{
					TargetVirtualPath: existing.VirtualPath,
					AssetID:           existing.ID,
					AlreadyExists:     true,
				}, nil
			}
		}
	}

	rel, err := filepath.Rel(deviceRoot, src)
	if err != nil {
		return nil, fmt.Errorf("calculating relative path: %w", err)
	}
	target := NormalizeVirtual(UserRoot(actor.UserID) + "/" + DeviceBackupDirName + "/" + filepath.ToSlash(rel))
	dest, err := s.resolver.physical(target)
	if err != nil {
		return nil, err
	}

	if exists, _ := s.fsmgr.Exists(dest); exists {
		destDigest, derr := cache.get(dest)
		if derr != nil {
			return nil, fmt.Errorf("hashing destination: %w", derr)
		}
		if destDigest == digest {
			s.logger.Debug("already synchronized", "path", target)
			return &SyncResult{TargetVirtualPath: target, AlreadyExists: true}, nil
		}
		renamed := s.uniqueName(path.Base(target))
		s.logger.Info("collision rename", "from", path.Base(target), "to", renamed)
		target = path.Dir(target) + "/" + renamed
		dest, err = s.resolver.physical(target)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.fsmgr.MkdirAll(filepath.Dir(dest)); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	if err := s.fsmgr.Copy(src, dest); err != nil {
		s.logger.Error("copy failed", "src", src, "dest", dest, "error", err)
		return nil, fmt.Errorf("copying file: %w", err)
	}

	if _, err := s.ensureFolder(path.Dir(target), actor.UserID); err != nil {
		return nil, fmt.Errorf("registering backup folder: %w", err)
	}

	s.mirrorContent(digest, dest)

	s.logger.Info("device file synchronized", "target", target, "user", actor.UserID)
	return &SyncResult{TargetVirtualPath: target}, nil
}

// mirrorContent uploads the ingested copy to the archive, encrypting
// first when encryption is configured. Mirror failures are logged, not
// fatal: the local copy is the source of truth.
func (s *Service) mirrorContent(digest string, physical string) {
	if s.archive == nil {
		return
	}

	if ok, err := s.archive.HasContent(digest); err == nil && ok {
		s.logger.Debug("archive already holds content", "digest", digest)
		return
	}

	f, err := s.fsmgr.Open(physical)
	if err != nil {
		s.logger.Warn("archive mirror skipped", "digest", digest, "error", err)
		return
	}
	defer f.Close()

	var r io.Reader = f
	if s.encryptor != nil && s.encryptor.IsConfigured() {
		pr, pw := io.Pipe()
		go func() {
			err := s.encryptor.Encrypt(f, pw)
			pw.CloseWithError(err)
		}()
		r = pr
	}

	if err := s.archive.PutContent(digest, r); err != nil {
		s.logger.Warn("archive mirror failed", "digest", digest, "error", err)
		return
	}
	s.logger.Debug("content archived", "digest", digest)
}
