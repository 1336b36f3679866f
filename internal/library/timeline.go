package library

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"medialib/internal/model"
)

// Timeline builds the reconciled timeline for an actor: indexed assets
// first, then not-yet-indexed files found in the internal store, then
// files present only on the actor's device. Each physical file appears
// exactly once, deduplicated by normalized path and by file name in
// index-then-store-then-device order. Trashed assets and anything under
// a trash subtree are excluded. Entries are ordered newest first.
func (s *Service) Timeline(ctx context.Context, actor Actor) ([]*model.TimelineEntry, error) {
	assets, err := s.visibleAssets(actor)
	if err != nil {
		return nil, err
	}
	syncing, err := s.syncingAssetIDs()
	if err != nil {
		return nil, err
	}

	var entries []*model.TimelineEntry
	seenPaths := make(map[string]bool)
	seenNames := make(map[string]bool)

	for _, a := range assets {
		if a.Deleted() {
			continue
		}
		status := model.StatusSynced
		if syncing[a.ID] {
			status = model.StatusSyncing
		}
		entries = append(entries, &model.TimelineEntry{
			AssetID:     a.ID,
			FileName:    a.FileName,
			VirtualPath: a.VirtualPath,
			Size:        a.Size,
			Digest:      a.Digest,
			Kind:        a.Kind,
			Status:      status,
			Width:       a.Width,
			Height:      a.Height,
			CreatedAt:   a.CapturedAt,
			ModifiedAt:  a.ModifiedAt,
		})
		seenPaths[timelineKey(a.VirtualPath)] = true
		seenNames[strings.ToLower(a.FileName)] = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefixes, err := s.AllowedPathPrefixes(actor)
	if err != nil {
		return nil, err
	}

	copied, err := s.copiedEntries(actor, prefixes, seenPaths, seenNames)
	if err != nil {
		return nil, err
	}
	entries = append(entries, copied...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pending, err := s.pendingEntries(actor, seenPaths, seenNames)
	if err != nil {
		return nil, err
	}
	entries = append(entries, pending...)

	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].SortDate(), entries[j].SortDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return entries[i].FileName > entries[j].FileName
	})

	s.logger.Debug("timeline built", "user", actor.UserID, "entries", len(entries))
	return entries, nil
}

// visibleAssets returns the indexed assets the actor may read.
func (s *Service) visibleAssets(actor Actor) ([]*model.Asset, error) {
	if actor.Admin {
		assets, err := s.store.FindAllAssets()
		if err != nil {
			return nil, fmt.Errorf("listing assets: %w", err)
		}
		return assets, nil
	}
	folderIDs, err := s.AllowedFolders(actor)
	if err != nil {
		return nil, err
	}
	if len(folderIDs) == 0 {
		return nil, nil
	}
	assets, err := s.store.FindAssetsByFolderIDs(folderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing assets by folder: %w", err)
	}
	return assets, nil
}

// syncingAssetIDs returns the ids of assets with an incomplete pending
// move, i.e. mid-transition.
func (s *Service) syncingAssetIDs() (map[string]bool, error) {
	moves, err := s.store.ListPendingMoves()
	if err != nil {
		return nil, fmt.Errorf("listing pending moves: %w", err)
	}
	ids := make(map[string]bool)
	for _, m := range moves {
		if m.CompletedAt == nil {
			ids[m.AssetID] = true
		}
	}
	return ids, nil
}

// copiedEntries scans the internal store for files not yet in the index.
func (s *Service) copiedEntries(actor Actor, prefixes []string, seenPaths, seenNames map[string]bool) ([]*model.TimelineEntry, error) {
	files, err := s.scanner.Scan(s.resolver.InternalRoot())
	if err != nil {
		return nil, fmt.Errorf("scanning internal store: %w", err)
	}

	var entries []*model.TimelineEntry
	for _, f := range files {
		vp, err := s.resolver.Virtualize(f.Path)
		if err != nil {
			s.logger.Debug("unvirtualizable scan result", "path", f.Path)
			continue
		}
		if !actor.Admin && !matchesAnyPrefix(vp, prefixes) {
			continue
		}
		key := timelineKey(vp)
		name := strings.ToLower(f.Name)
		if seenPaths[key] || seenNames[name] {
			continue
		}
		seenPaths[key] = true
		seenNames[name] = true
		entries = append(entries, &model.TimelineEntry{
			FileName:    f.Name,
			VirtualPath: vp,
			Size:        f.Size,
			Kind:        f.Kind,
			Status:      model.StatusCopied,
			CreatedAt:   f.CreatedAt,
			ModifiedAt:  f.ModifiedAt,
		})
	}
	return entries, nil
}

// pendingEntries scans the actor's device for files not yet copied in.
// Users without a configured device root simply contribute nothing.
func (s *Service) pendingEntries(actor Actor, seenPaths, seenNames map[string]bool) ([]*model.TimelineEntry, error) {
	root := s.resolver.DeviceRoot(actor.UserID)
	if root == "" {
		return nil, nil
	}
	files, err := s.scanner.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	var entries []*model.TimelineEntry
	for _, f := range files {
		vp, err := s.resolver.Virtualize(f.Path)
		if err != nil {
			s.logger.Debug("unvirtualizable scan result", "path", f.Path)
			continue
		}
		key := timelineKey(vp)
		name := strings.ToLower(f.Name)
		if seenPaths[key] || seenNames[name] {
			continue
		}
		seenPaths[key] = true
		seenNames[name] = true
		entries = append(entries, &model.TimelineEntry{
			FileName:    f.Name,
			VirtualPath: vp,
			Size:        f.Size,
			Kind:        f.Kind,
			Status:      model.StatusPending,
			CreatedAt:   f.CreatedAt,
			ModifiedAt:  f.ModifiedAt,
		})
	}
	return entries, nil
}

// timelineKey normalizes a virtual path for duplicate detection.
func timelineKey(virtualPath string) string {
	return strings.ToLower(NormalizeVirtual(virtualPath))
}
