package library

import (
	"context"
	"fmt"
	"path"

	"medialib/internal/model"
)

// ReconcilePending resolves pending moves left incomplete by a crash.
// A move whose destination file exists is completed by applying its
// recorded asset state; a move whose source is still in place never
// happened and is discarded. Returns the number of moves completed.
func (s *Service) ReconcilePending(ctx context.Context) (int, error) {
	moves, err := s.store.ListPendingMoves()
	if err != nil {
		return 0, fmt.Errorf("listing pending moves: %w", err)
	}

	var pendingIDs []string
	var updated []*model.Asset
	var albumDrops []string

	for _, pm := range moves {
		if pm.CompletedAt != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.logger.Warn("reconcile cancelled", "completed", len(updated))
			break
		}

		destExists, _ := s.fsmgr.Exists(pm.DestPath)
		if !destExists {
			if srcExists, _ := s.fsmgr.Exists(pm.SrcPath); srcExists {
				s.logger.Info("discarding unexecuted move", "pending", pm.ID, "asset", pm.AssetID)
			} else {
				// Neither side present. The file is gone; keep the index
				// honest by discarding rather than inventing a location.
				s.logger.Warn("pending move with no file on either side", "pending", pm.ID, "asset", pm.AssetID)
			}
			s.discardPending(pm.ID)
			continue
		}

		a, err := s.store.FindAssetByID(pm.AssetID)
		if err != nil {
			s.logger.Error("loading asset for pending move", "pending", pm.ID, "error", err)
			continue
		}
		if a == nil {
			s.logger.Warn("pending move for purged asset", "pending", pm.ID, "asset", pm.AssetID)
			s.discardPending(pm.ID)
			continue
		}

		a.VirtualPath = pm.VirtualPath
		a.FileName = path.Base(pm.VirtualPath)
		a.FolderID = pm.FolderID
		a.DeletedAt = pm.DeletedAt
		a.DeletedFromPath = pm.DeletedFromPath
		a.DeletedFromFolderID = pm.DeletedFromFolderID

		pendingIDs = append(pendingIDs, pm.ID)
		updated = append(updated, a)
		if pm.Op == "trash" {
			albumDrops = append(albumDrops, a.ID)
		}
		s.logger.Info("completing interrupted move", "pending", pm.ID, "asset", a.ID, "op", pm.Op)
	}

	if err := s.store.FinalizeMoveBatch(pendingIDs, updated, albumDrops); err != nil {
		return 0, fmt.Errorf("committing reconciliation: %w", err)
	}
	return len(updated), ctx.Err()
}
