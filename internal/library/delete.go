package library

import (
	"context"
	"fmt"
	"time"

	"medialib/internal/model"
)

// DeleteAssets soft-deletes the given assets: each physical file is moved
// into the actor's per-day trash bucket and the row is marked deleted.
// Already-deleted targets are no-ops. Items are processed independently;
// a failure on one is logged and skipped, never rolling back earlier
// items. The index is committed once after all targets are processed.
func (s *Service) DeleteAssets(ctx context.Context, ids []string, actor Actor) error {
	if len(ids) == 0 {
		return fmt.Errorf("no asset ids given: %w", ErrInvalidArgument)
	}

	assets, err := s.loadAssets(ids)
	if err != nil {
		return err
	}
	if err := s.authorizeAll(actor, assets); err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	day := now.Format("2006-01-02")
	bucketPath := TrashBucketPath(actor.UserID, day)
	bucket, err := s.ensureFolder(bucketPath, actor.UserID)
	if err != nil {
		return fmt.Errorf("ensuring trash bucket: %w", err)
	}
	bucketPhys, err := s.resolver.physical(bucketPath)
	if err != nil {
		return err
	}
	if err := s.fsmgr.MkdirAll(bucketPhys); err != nil {
		return fmt.Errorf("creating trash bucket: %w", err)
	}

	var pendingIDs []string
	var updated []*model.Asset
	var albumDrops []string

	for _, a := range assets {
		if a.Deleted() {
			// Idempotent: no second trash copy, no error.
			continue
		}
		if err := ctx.Err(); err != nil {
			s.logger.Warn("delete cancelled", "remaining", len(assets)-len(updated))
			break
		}

		pm, ok := s.trashOne(a, bucket, bucketPath, now)
		if !ok {
			continue
		}

		if a.DeletedFromPath == "" {
			a.DeletedFromPath = a.VirtualPath
			a.DeletedFromFolderID = a.FolderID
		}
		a.DeletedAt = &now
		a.VirtualPath = pm.VirtualPath
		a.FolderID = bucket.ID

		pendingIDs = append(pendingIDs, pm.ID)
		updated = append(updated, a)
		albumDrops = append(albumDrops, a.ID)
	}

	if err := s.store.FinalizeMoveBatch(pendingIDs, updated, albumDrops); err != nil {
		return fmt.Errorf("committing delete batch: %w", err)
	}

	s.logger.Info("assets deleted", "requested", len(ids), "moved", len(updated), "user", actor.UserID)
	return ctx.Err()
}

// trashOne records the intent and moves one asset's file into the trash
// bucket. Returns the pending move and false if the item was skipped.
func (s *Service) trashOne(a *model.Asset, bucket *model.Folder, bucketPath string, now time.Time) (*model.PendingMove, bool) {
	src, err := s.resolver.physical(a.VirtualPath)
	if err != nil {
		s.logger.Error("cannot resolve asset path", "asset", a.ID, "path", a.VirtualPath, "error", err)
		return nil, false
	}

	destName := now.Format("20060102_150405") + "_" + a.FileName
	destVirtual := bucketPath + "/" + destName
	dest, err := s.resolver.physical(destVirtual)
	if err != nil {
		s.logger.Error("cannot resolve trash path", "asset", a.ID, "error", err)
		return nil, false
	}

	if exists, _ := s.fsmgr.Exists(dest); exists {
		renamed := s.uniqueName(destName)
		s.logger.Info("collision rename", "asset", a.ID, "from", destName, "to", renamed)
		destName = renamed
		destVirtual = bucketPath + "/" + destName
		dest, err = s.resolver.physical(destVirtual)
		if err != nil {
			s.logger.Error("cannot resolve trash path", "asset", a.ID, "error", err)
			return nil, false
		}
	}

	deletedFromPath := a.DeletedFromPath
	deletedFromFolder := a.DeletedFromFolderID
	if deletedFromPath == "" {
		deletedFromPath = a.VirtualPath
		deletedFromFolder = a.FolderID
	}
	pm := &model.PendingMove{
		ID:                  s.idgen.New(),
		AssetID:             a.ID,
		Op:                  "trash",
		SrcPath:             src,
		DestPath:            dest,
		VirtualPath:         destVirtual,
		FolderID:            bucket.ID,
		DeletedAt:           &now,
		DeletedFromPath:     deletedFromPath,
		DeletedFromFolderID: deletedFromFolder,
		CreatedAt:           now,
	}
	// Durable intent first, so a crash mid-move is recoverable.
	if err := s.store.CreatePendingMove(pm); err != nil {
		s.logger.Error("recording pending move", "asset", a.ID, "error", err)
		return nil, false
	}

	srcExists, _ := s.fsmgr.Exists(src)
	if !srcExists {
		// A concurrent delete may have won the race; the index update
		// still applies.
		s.logger.Debug("source already gone", "asset", a.ID, "path", src)
		return pm, true
	}
	if err := s.fsmgr.Move(src, dest); err != nil {
		if exists, _ := s.fsmgr.Exists(src); !exists {
			s.logger.Debug("source moved concurrently", "asset", a.ID, "path", src)
			return pm, true
		}
		s.logger.Error("move to trash failed", "asset", a.ID, "error", err)
		if derr := s.store.DeletePendingMove(pm.ID); derr != nil {
			s.logger.Error("discarding pending move", "pending", pm.ID, "error", derr)
		}
		return nil, false
	}
	return pm, true
}

// loadAssets fetches all ids and fails with NotFound if any is absent.
func (s *Service) loadAssets(ids []string) ([]*model.Asset, error) {
	assets, err := s.store.FindAssetsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	if len(assets) != len(ids) {
		found := make(map[string]bool, len(assets))
		for _, a := range assets {
			found[a.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
			}
		}
	}
	return assets, nil
}
