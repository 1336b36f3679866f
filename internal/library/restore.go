package library

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"medialib/internal/model"
)

// RestoreAssets moves the given trashed assets back to where they were
// deleted from (or to the actor's root when the origin is unknown) and
// clears their deletion markers.
func (s *Service) RestoreAssets(ctx context.Context, ids []string, actor Actor) error {
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
	_, err = s.restore(ctx, assets, actor)
	return err
}

// RestoreAll restores every trashed asset under the actor's root.
// Returns the number of assets restored.
func (s *Service) RestoreAll(ctx context.Context, actor Actor) (int, error) {
	prefix := UserRoot(actor.UserID) + "/"
	if actor.Admin {
		prefix = ""
	}
	assets, err := s.store.FindDeletedAssets(prefix)
	if err != nil {
		return 0, fmt.Errorf("listing trashed assets: %w", err)
	}
	return s.restore(ctx, assets, actor)
}

func (s *Service) restore(ctx context.Context, assets []*model.Asset, actor Actor) (int, error) {
	var pendingIDs []string
	var updated []*model.Asset

	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("restore cancelled", "remaining", len(assets)-len(updated))
			break
		}
		pm, ok := s.restoreOne(a, actor)
		if !ok {
			continue
		}

		a.VirtualPath = pm.VirtualPath
		a.FileName = path.Base(pm.VirtualPath)
		a.FolderID = pm.FolderID
		a.DeletedAt = nil
		a.DeletedFromPath = ""
		a.DeletedFromFolderID = ""

		pendingIDs = append(pendingIDs, pm.ID)
		updated = append(updated, a)
	}

	if err := s.store.FinalizeMoveBatch(pendingIDs, updated, nil); err != nil {
		return 0, fmt.Errorf("committing restore batch: %w", err)
	}

	s.logger.Info("assets restored", "count", len(updated), "user", actor.UserID)
	return len(updated), ctx.Err()
}

// restoreOne records the intent and moves one asset's file out of trash.
func (s *Service) restoreOne(a *model.Asset, actor Actor) (*model.PendingMove, bool) {
	target := a.DeletedFromPath
	if target == "" {
		target = UserRoot(actor.UserID) + "/" + a.FileName
	}
	target = NormalizeVirtual(target)

	// The original folder may have been purged since deletion; re-create
	// the ancestry either way so the row has a live folder reference.
	folderID := a.DeletedFromFolderID
	if folderID != "" {
		folder, err := s.store.FindFolderByID(folderID)
		if err != nil {
			s.logger.Error("finding restore folder", "asset", a.ID, "error", err)
			return nil, false
		}
		if folder == nil {
			folderID = ""
		}
	}
	if folderID == "" {
		folder, err := s.ensureFolder(path.Dir(target), actor.UserID)
		if err != nil {
			s.logger.Error("ensuring restore folder", "asset", a.ID, "error", err)
			return nil, false
		}
		folderID = folder.ID
	}

	src, err := s.resolver.physical(a.VirtualPath)
	if err != nil {
		s.logger.Error("cannot resolve trash path", "asset", a.ID, "error", err)
		return nil, false
	}
	dest, err := s.resolver.physical(target)
	if err != nil {
		s.logger.Error("cannot resolve restore path", "asset", a.ID, "error", err)
		return nil, false
	}

	if exists, _ := s.fsmgr.Exists(dest); exists {
		renamed := s.uniqueName(path.Base(target))
		s.logger.Info("collision rename", "asset", a.ID, "from", path.Base(target), "to", renamed)
		target = path.Dir(target) + "/" + renamed
		dest, err = s.resolver.physical(target)
		if err != nil {
			s.logger.Error("cannot resolve restore path", "asset", a.ID, "error", err)
			return nil, false
		}
	}

	pm := &model.PendingMove{
		ID:          s.idgen.New(),
		AssetID:     a.ID,
		Op:          "restore",
		SrcPath:     src,
		DestPath:    dest,
		VirtualPath: target,
		FolderID:    folderID,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.store.CreatePendingMove(pm); err != nil {
		s.logger.Error("recording pending move", "asset", a.ID, "error", err)
		return nil, false
	}

	if err := s.fsmgr.MkdirAll(filepath.Dir(dest)); err != nil {
		s.logger.Error("creating restore directory", "asset", a.ID, "error", err)
		s.discardPending(pm.ID)
		return nil, false
	}

	srcExists, _ := s.fsmgr.Exists(src)
	if !srcExists {
		s.logger.Debug("trash copy already gone", "asset", a.ID, "path", src)
		return pm, true
	}
	if err := s.fsmgr.Move(src, dest); err != nil {
		if exists, _ := s.fsmgr.Exists(src); !exists {
			s.logger.Debug("trash copy moved concurrently", "asset", a.ID, "path", src)
			return pm, true
		}
		s.logger.Error("move from trash failed", "asset", a.ID, "error", err)
		s.discardPending(pm.ID)
		return nil, false
	}
	return pm, true
}

func (s *Service) discardPending(id string) {
	if err := s.store.DeletePendingMove(id); err != nil {
		s.logger.Error("discarding pending move", "pending", id, "error", err)
	}
}
