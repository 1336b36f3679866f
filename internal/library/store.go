package library

import "medialib/internal/model"

// Store provides an interface for index persistence.
// Lookup methods return (nil, nil) when no row matches.
type Store interface {
	// Asset operations

	// FindAssetByID returns the asset with the given id.
	FindAssetByID(id string) (*model.Asset, error)

	// FindAssetsByIDs returns the assets matching the given ids, in no
	// particular order. Missing ids are simply absent from the result.
	FindAssetsByIDs(ids []string) ([]*model.Asset, error)

	// FindAssetByDigest returns the asset whose content digest matches.
	// Digests are unique across all rows, so at most one can exist.
	FindAssetByDigest(digest string) (*model.Asset, error)

	// FindAllAssets returns every indexed asset.
	FindAllAssets() ([]*model.Asset, error)

	// FindAssetsByFolderIDs returns assets whose folder is in the given set.
	FindAssetsByFolderIDs(folderIDs []string) ([]*model.Asset, error)

	// FindDeletedAssets returns soft-deleted assets whose pre-deletion
	// virtual path starts with pathPrefix. An empty prefix matches all.
	FindDeletedAssets(pathPrefix string) ([]*model.Asset, error)

	// CreateAsset inserts a new asset row.
	CreateAsset(a *model.Asset) error

	// UpdateAsset persists all mutable fields of an asset.
	UpdateAsset(a *model.Asset) error

	// PurgeAssets removes the asset rows and their album memberships in a
	// single transaction. Terminal: there is no recovery path.
	PurgeAssets(ids []string) error

	// Folder operations

	FindFolderByID(id string) (*model.Folder, error)
	FindFolderByPath(path string) (*model.Folder, error)

	// FindFoldersByPathPrefix returns folders whose normalized path starts
	// with the given prefix.
	FindFoldersByPathPrefix(prefix string) ([]*model.Folder, error)

	CreateFolder(f *model.Folder) error

	// Permission operations

	// FindPermission returns the grant for a (user, folder) pair.
	FindPermission(userID, folderID string) (*model.FolderPermission, error)

	// FindPermissionsByUser returns every grant made to the given user.
	FindPermissionsByUser(userID string) ([]*model.FolderPermission, error)

	// GrantedFolderIDs returns the set of folder ids that carry at least
	// one explicit grant to anyone.
	GrantedFolderIDs() (map[string]bool, error)

	// UpsertPermission creates or replaces the grant for (user, folder).
	UpsertPermission(p *model.FolderPermission) error

	// Album membership operations

	AddAlbumEntry(albumID, assetID string) error
	FindAlbumIDsForAsset(assetID string) ([]string, error)

	// Pending move operations

	// CreatePendingMove durably records an intended physical move. Must be
	// committed before the move itself happens.
	CreatePendingMove(m *model.PendingMove) error

	// DeletePendingMove discards an intent whose move never happened.
	DeletePendingMove(id string) error

	// ListPendingMoves returns all pending move rows, incomplete first.
	ListPendingMoves() ([]*model.PendingMove, error)

	// FinalizeMoveBatch marks the given pending moves complete, applies the
	// asset updates, and drops album memberships for the given asset ids,
	// all in one transaction. This is the single batch commit of a
	// delete/restore pass.
	FinalizeMoveBatch(pendingIDs []string, assets []*model.Asset, dropAlbumsFor []string) error

	// Close closes the underlying connection.
	Close() error
}
