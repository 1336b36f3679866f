package library_test

import (
	"path"
	"strings"
	"testing"
	"time"

	"medialib/internal/database"
	"medialib/internal/library"
	"medialib/internal/model"
	"medialib/internal/testutil"
)

const (
	internalRoot = "/srv/assets"
	deviceRoot42 = "/mnt/device42"
	thumbsDir    = "/srv/thumbs"
)

// fixture wires a Service over an in-memory store and fake filesystem.
type fixture struct {
	store *database.SQLiteStore
	fs    *testutil.FakeFilesystem
	clock *testutil.StubClock
	idgen *testutil.StubIDGenerator
	svc   *library.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := testutil.NewTestStore(t)
	fakeFS := testutil.NewFakeFilesystem()
	fakeFS.AddDirectory(internalRoot)
	fakeFS.AddDirectory(deviceRoot42)
	fakeFS.AddDirectory(thumbsDir)

	resolver := library.NewPathResolver(internalRoot, map[string]string{
		"42": deviceRoot42,
	})
	clock := testutil.FixedClock()
	idgen := testutil.NewStubIDGenerator()

	svc := library.NewService(
		store, fakeFS, fakeFS, fakeFS, resolver,
		nil, nil, thumbsDir,
		library.NewNopLogger(), clock, idgen,
	)

	return &fixture{store: store, fs: fakeFS, clock: clock, idgen: idgen, svc: svc}
}

// phys maps a virtual /assets path to its physical location in the fake
// filesystem.
func phys(virtualPath string) string {
	return internalRoot + strings.TrimPrefix(virtualPath, library.AssetsNamespace)
}

// seedFolder creates a folder row, and any missing ancestors, owned by userID.
func (f *fixture) seedFolder(t *testing.T, folderPath, userID string) *model.Folder {
	t.Helper()
	folderPath = library.NormalizeVirtual(folderPath)

	existing, err := f.store.FindFolderByPath(folderPath)
	if err != nil {
		t.Fatalf("finding folder: %v", err)
	}
	if existing != nil {
		return existing
	}

	var parent *model.Folder
	if folderPath != library.AssetsNamespace {
		parent = f.seedFolder(t, path.Dir(folderPath), userID)
	}

	folder := &model.Folder{
		ID:        f.idgen.New(),
		Path:      folderPath,
		Name:      path.Base(folderPath),
		CreatedAt: f.clock.Now().UTC(),
	}
	if parent != nil {
		folder.ParentID = parent.ID
	}
	if library.HasPathPrefix(folderPath, library.UserRoot(userID)) {
		folder.OwnerUserID = userID
	}
	if err := f.store.CreateFolder(folder); err != nil {
		t.Fatalf("creating folder %s: %v", folderPath, err)
	}
	return folder
}

// seedAsset creates an indexed asset with a backing physical file.
func (f *fixture) seedAsset(t *testing.T, id, userID, virtualPath string, content []byte) *model.Asset {
	t.Helper()

	folder := f.seedFolder(t, path.Dir(virtualPath), userID)
	asset := &model.Asset{
		ID:          id,
		FileName:    path.Base(virtualPath),
		VirtualPath: virtualPath,
		Size:        int64(len(content)),
		Digest:      testutil.SHA256Hex(content),
		Kind:        model.KindForName(virtualPath),
		CapturedAt:  f.clock.Now().UTC().Add(-24 * time.Hour),
		ModifiedAt:  f.clock.Now().UTC().Add(-24 * time.Hour),
		ScannedAt:   f.clock.Now().UTC(),
		FolderID:    folder.ID,
	}
	if err := f.store.CreateAsset(asset); err != nil {
		t.Fatalf("creating asset %s: %v", id, err)
	}
	f.fs.AddFile(phys(virtualPath), content)
	return asset
}

// mustFindAsset fetches an asset by id and fails the test if absent.
func (f *fixture) mustFindAsset(t *testing.T, id string) *model.Asset {
	t.Helper()
	a, err := f.store.FindAssetByID(id)
	if err != nil {
		t.Fatalf("finding asset %s: %v", id, err)
	}
	if a == nil {
		t.Fatalf("asset %s not found", id)
	}
	return a
}
