package library

import (
	"fmt"

	"medialib/internal/model"
)

// AllowedFolders returns the set of folder ids the actor may read.
// Admins see every folder. For everyone else the set is the union of
// explicit read grants, folders with an explicit ownership record, and
// folders implicitly owned by virtue of living under the actor's root
// while carrying no explicit grants at all.
func (s *Service) AllowedFolders(actor Actor) ([]string, error) {
	if actor.Admin {
		folders, err := s.store.FindFoldersByPathPrefix(AssetsNamespace)
		if err != nil {
			return nil, fmt.Errorf("listing folders: %w", err)
		}
		ids := make([]string, len(folders))
		for i, f := range folders {
			ids[i] = f.ID
		}
		return ids, nil
	}

	granted, err := s.store.GrantedFolderIDs()
	if err != nil {
		return nil, fmt.Errorf("listing granted folders: %w", err)
	}

	allowed := make(map[string]bool)

	perms, err := s.store.FindPermissionsByUser(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	for _, p := range perms {
		if p.CanRead {
			allowed[p.FolderID] = true
		}
	}

	owned, err := s.store.FindFoldersByPathPrefix(UserRoot(actor.UserID))
	if err != nil {
		return nil, fmt.Errorf("listing owned folders: %w", err)
	}
	for _, f := range owned {
		if f.OwnerUserID == actor.UserID {
			allowed[f.ID] = true
			continue
		}
		// Implicit ownership: under the user's root with no grants anywhere.
		if !granted[f.ID] {
			allowed[f.ID] = true
		}
	}

	ids := make([]string, 0, len(allowed))
	for id := range allowed {
		ids = append(ids, id)
	}
	return ids, nil
}

// AllowedPathPrefixes returns the virtual path prefixes the actor may see
// in scan-derived (non-indexed) entries. Every prefix is terminated with
// a separator so "users/12" never matches "users/123". Admins get nil,
// meaning unfiltered.
func (s *Service) AllowedPathPrefixes(actor Actor) ([]string, error) {
	if actor.Admin {
		return nil, nil
	}

	prefixes := map[string]bool{UserRoot(actor.UserID) + "/": true}

	perms, err := s.store.FindPermissionsByUser(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	for _, p := range perms {
		if !p.CanRead {
			continue
		}
		folder, err := s.store.FindFolderByID(p.FolderID)
		if err != nil {
			return nil, fmt.Errorf("finding folder %s: %w", p.FolderID, err)
		}
		if folder != nil {
			prefixes[folder.Path+"/"] = true
		}
	}

	out := make([]string, 0, len(prefixes))
	for p := range prefixes {
		out = append(out, p)
	}
	return out, nil
}

// GrantPermission records or replaces a grant of capabilities over a
// folder for a user. Only admins, the folder's owner, and holders of a
// manage grant may change permissions.
func (s *Service) GrantPermission(actor Actor, folderID, userID string, read, write, del, manage bool) error {
	folder, err := s.store.FindFolderByID(folderID)
	if err != nil {
		return fmt.Errorf("finding folder %s: %w", folderID, err)
	}
	if folder == nil {
		return fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}
	if ok, err := s.mayManage(actor, folder); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("folder %s: %w", folder.Path, ErrForbidden)
	}

	p := &model.FolderPermission{
		ID:        s.idgen.New(),
		FolderID:  folderID,
		UserID:    userID,
		GrantedBy: actor.UserID,
		CanRead:   read,
		CanWrite:  write,
		CanDelete: del,
		CanManage: manage,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.store.UpsertPermission(p); err != nil {
		return fmt.Errorf("granting permission on %s: %w", folder.Path, err)
	}
	s.logger.Info("permission granted", "folder", folder.Path, "user", userID, "by", actor.UserID)
	return nil
}

// mayManage authorizes permission changes on a folder.
func (s *Service) mayManage(actor Actor, folder *model.Folder) (bool, error) {
	if actor.Admin {
		return true, nil
	}
	if folder.OwnerUserID == actor.UserID || underOwnRoot(actor, folder.Path) {
		return true, nil
	}
	perm, err := s.store.FindPermission(actor.UserID, folder.ID)
	if err != nil {
		return false, fmt.Errorf("finding permission: %w", err)
	}
	return perm != nil && perm.CanManage, nil
}

// matchesAnyPrefix reports whether the virtual path falls under any of
// the given separator-terminated prefixes.
func matchesAnyPrefix(virtualPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if HasPathPrefix(virtualPath, p) {
			return true
		}
	}
	return false
}

// underOwnRoot reports whether a virtual path lies beneath the actor's
// own user root.
func underOwnRoot(actor Actor, virtualPath string) bool {
	return HasPathPrefix(virtualPath, UserRoot(actor.UserID))
}

// mayModify authorizes a destructive operation on an asset: admins, the
// owner by root prefix, the folder's recorded owner, and holders of an
// explicit delete grant. Evaluated per call, never cached.
func (s *Service) mayModify(actor Actor, asset *model.Asset) (bool, error) {
	if actor.Admin {
		return true, nil
	}
	origin := asset.VirtualPath
	if asset.Deleted() && asset.DeletedFromPath != "" {
		origin = asset.DeletedFromPath
	}
	if underOwnRoot(actor, origin) || underOwnRoot(actor, asset.VirtualPath) {
		return true, nil
	}
	folder, err := s.store.FindFolderByID(asset.FolderID)
	if err != nil {
		return false, fmt.Errorf("finding folder %s: %w", asset.FolderID, err)
	}
	if folder != nil && folder.OwnerUserID == actor.UserID {
		return true, nil
	}
	perm, err := s.store.FindPermission(actor.UserID, asset.FolderID)
	if err != nil {
		return false, fmt.Errorf("finding permission: %w", err)
	}
	return perm != nil && perm.CanDelete, nil
}

// authorizeAll short-circuits with ErrForbidden unless the actor may
// modify every one of the given assets. Runs before any side effect.
func (s *Service) authorizeAll(actor Actor, assets []*model.Asset) error {
	for _, a := range assets {
		ok, err := s.mayModify(actor, a)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("asset %s: %w", a.ID, ErrForbidden)
		}
	}
	return nil
}
