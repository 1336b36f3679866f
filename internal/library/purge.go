package library

import (
	"context"
	"fmt"
	"path/filepath"

	"medialib/internal/model"
)

// PurgeAssets permanently removes trashed assets: the physical file, any
// generated thumbnails (best effort), album memberships, and the index
// row. Purging an asset that is not in trash is rejected. Terminal.
func (s *Service) PurgeAssets(ctx context.Context, ids []string, actor Actor) error {
	if len(ids) == 0 {
		return fmt.Errorf("no asset ids given: %w", ErrInvalidArgument)
	}
	assets, err := s.loadAssets(ids)
	if err != nil {
		return err
	}
	for _, a := range assets {
		if !a.Deleted() {
			return fmt.Errorf("asset %s is not in trash: %w", a.ID, ErrInvalidArgument)
		}
	}
	if err := s.authorizeAll(actor, assets); err != nil {
		return err
	}
	_, err = s.purge(ctx, assets)
	return err
}

// PurgeAll purges every trashed asset under the actor's root (all trashed
// assets for admins). Returns the number of assets purged.
func (s *Service) PurgeAll(ctx context.Context, actor Actor) (int, error) {
	prefix := UserRoot(actor.UserID) + "/"
	if actor.Admin {
		prefix = ""
	}
	assets, err := s.store.FindDeletedAssets(prefix)
	if err != nil {
		return 0, fmt.Errorf("listing trashed assets: %w", err)
	}
	return s.purge(ctx, assets)
}

// EmptyTrash purges everything in the actor's own trash.
func (s *Service) EmptyTrash(ctx context.Context, actor Actor) (int, error) {
	assets, err := s.store.FindDeletedAssets(UserRoot(actor.UserID) + "/")
	if err != nil {
		return 0, fmt.Errorf("listing trash: %w", err)
	}
	return s.purge(ctx, assets)
}

func (s *Service) purge(ctx context.Context, assets []*model.Asset) (int, error) {
	var purged []string

	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("purge cancelled", "remaining", len(assets)-len(purged))
			break
		}

		phys, err := s.resolver.physical(a.VirtualPath)
		if err != nil {
			s.logger.Error("cannot resolve asset path", "asset", a.ID, "error", err)
			continue
		}
		if exists, _ := s.fsmgr.Exists(phys); exists {
			if err := s.fsmgr.Remove(phys); err != nil {
				s.logger.Error("removing file", "asset", a.ID, "path", phys, "error", err)
				continue
			}
		}
		s.removeThumbnails(a.ID)
		purged = append(purged, a.ID)
	}

	if len(purged) > 0 {
		if err := s.store.PurgeAssets(purged); err != nil {
			return 0, fmt.Errorf("committing purge batch: %w", err)
		}
	}

	s.logger.Info("assets purged", "count", len(purged))
	return len(purged), ctx.Err()
}

// removeThumbnails deletes any generated thumbnail files for an asset.
// Missing files and glob errors are not failures.
func (s *Service) removeThumbnails(assetID string) {
	if s.thumbsDir == "" {
		return
	}
	matches, err := s.fsmgr.Glob(filepath.Join(s.thumbsDir, assetID+"*"))
	if err != nil {
		s.logger.Debug("thumbnail glob failed", "asset", assetID, "error", err)
		return
	}
	for _, m := range matches {
		if err := s.fsmgr.Remove(m); err != nil {
			s.logger.Debug("removing thumbnail", "path", m, "error", err)
		}
	}
}
