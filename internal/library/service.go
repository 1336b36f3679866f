package library

import (
	"fmt"
	"path"
	"strings"

	"medialib/internal/model"
)

// Actor identifies the user an operation runs on behalf of.
type Actor struct {
	UserID string
	Admin  bool
}

// Service is the orchestration layer for the media library lifecycle:
// delete/restore/purge/sync transitions and the reconciled timeline view.
type Service struct {
	store     Store
	fsmgr     FilesystemManager
	scanner   Scanner
	hasher    Hasher
	resolver  *PathResolver
	archive   Archive   // optional; nil disables mirroring
	encryptor Encryptor // optional; used only with archive
	thumbsDir string    // physical dir holding generated thumbnails
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates a Service with the provided dependencies.
// archive and encryptor may be nil.
func NewService(store Store, fsmgr FilesystemManager, scanner Scanner, hasher Hasher, resolver *PathResolver, archive Archive, encryptor Encryptor, thumbsDir string, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		store:     store,
		fsmgr:     fsmgr,
		scanner:   scanner,
		hasher:    hasher,
		resolver:  resolver,
		archive:   archive,
		encryptor: encryptor,
		thumbsDir: thumbsDir,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Resolver exposes the path resolver for callers that virtualize or
// resolve paths outside a lifecycle operation.
func (s *Service) Resolver() *PathResolver { return s.resolver }

// uniqueName inserts a random token before the extension so a colliding
// file name becomes unpredictable and unique.
func (s *Service) uniqueName(name string) string {
	token := strings.ReplaceAll(s.idgen.New(), "-", "")
	if len(token) > 8 {
		token = token[:8]
	}
	ext := path.Ext(name)
	return name[:len(name)-len(ext)] + "_" + token + ext
}

// ensureFolder finds or creates the folder for a virtual path, creating
// missing ancestors. Every folder created under the owner's root gets an
// explicit ownership record and a full-capability grant.
func (s *Service) ensureFolder(virtualPath string, ownerUserID string) (*model.Folder, error) {
	vp := NormalizeVirtual(virtualPath)
	if !hasVirtualPrefix(vp, AssetsNamespace) {
		return nil, fmt.Errorf("folder outside assets namespace: %s: %w", vp, ErrInvalidArgument)
	}

	existing, err := s.store.FindFolderByPath(vp)
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	// Walk down from /assets creating whatever is missing.
	segments := strings.Split(strings.TrimPrefix(vp, "/"), "/")
	current := ""
	var parent *model.Folder
	for _, seg := range segments {
		current += "/" + seg
		folder, err := s.store.FindFolderByPath(current)
		if err != nil {
			return nil, fmt.Errorf("finding folder %s: %w", current, err)
		}
		if folder == nil {
			folder = &model.Folder{
				ID:        s.idgen.New(),
				Path:      current,
				Name:      seg,
				CreatedAt: s.clock.Now().UTC(),
			}
			if parent != nil {
				folder.ParentID = parent.ID
			}
			if HasPathPrefix(current, UserRoot(ownerUserID)) {
				folder.OwnerUserID = ownerUserID
			}
			if err := s.store.CreateFolder(folder); err != nil {
				return nil, fmt.Errorf("creating folder %s: %w", current, err)
			}
			if folder.OwnerUserID != "" {
				if err := s.grantOwner(folder, ownerUserID); err != nil {
					return nil, err
				}
			}
		}
		parent = folder
	}
	return parent, nil
}

// grantOwner records a full-capability grant for the folder's owner.
func (s *Service) grantOwner(folder *model.Folder, userID string) error {
	p := &model.FolderPermission{
		ID:        s.idgen.New(),
		FolderID:  folder.ID,
		UserID:    userID,
		GrantedBy: userID,
		CanRead:   true,
		CanWrite:  true,
		CanDelete: true,
		CanManage: true,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.store.UpsertPermission(p); err != nil {
		return fmt.Errorf("granting owner permission on %s: %w", folder.Path, err)
	}
	return nil
}
