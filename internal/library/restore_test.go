package library_test

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"

	"medialib/internal/library"
)

func TestRestoreAssets_RoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}
	content := []byte("image bytes")
	origin := "/assets/users/42/Uploads/IMG_001.jpg"
	f.seedAsset(t, "a1", "42", origin, content)

	if err := f.svc.DeleteAssets(context.Background(), []string{"a1"}, actor); err != nil {
		t.Fatalf("DeleteAssets() error = %v", err)
	}
	if err := f.svc.RestoreAssets(context.Background(), []string{"a1"}, actor); err != nil {
		t.Fatalf("RestoreAssets() error = %v", err)
	}

	a := f.mustFindAsset(t, "a1")
	if a.VirtualPath != origin {
		t.Errorf("VirtualPath = %q, want %q", a.VirtualPath, origin)
	}
	if a.Deleted() {
		t.Error("deletion marker still set after restore")
	}
	if a.DeletedFromPath != "" || a.DeletedFromFolderID != "" {
		t.Errorf("origin markers not cleared: %q %q", a.DeletedFromPath, a.DeletedFromFolderID)
	}
	if got := f.fs.Contents(phys(origin)); string(got) != string(content) {
		t.Errorf("restored content = %q, want %q", got, content)
	}

	// Trash is empty again.
	for _, p := range f.fs.Paths() {
		if strings.Contains(p, library.TrashDirName) {
			t.Errorf("file left in trash: %s", p)
		}
	}
}

func TestRestoreAssets_NotInTrash(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedAsset(t, "a1", "42", "/assets/users/42/IMG_001.jpg", []byte("x"))

	err := f.svc.RestoreAssets(context.Background(), []string{"a1"}, library.Actor{UserID: "42"})
	if !errors.Is(err, library.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestRestoreAssets_CollisionRename(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}
	origin := "/assets/users/42/IMG_001.jpg"
	f.seedAsset(t, "a1", "42", origin, []byte("trashed"))

	if err := f.svc.DeleteAssets(context.Background(), []string{"a1"}, actor); err != nil {
		t.Fatalf("DeleteAssets() error = %v", err)
	}

	// Something else now occupies the origin path.
	f.fs.AddFile(phys(origin), []byte("newcomer"))

	if err := f.svc.RestoreAssets(context.Background(), []string{"a1"}, actor); err != nil {
		t.Fatalf("RestoreAssets() error = %v", err)
	}

	a := f.mustFindAsset(t, "a1")
	if a.VirtualPath == origin {
		t.Fatal("restore overwrote the occupying file")
	}
	if path.Dir(a.VirtualPath) != path.Dir(origin) {
		t.Errorf("restored outside origin directory: %q", a.VirtualPath)
	}
	if !strings.HasPrefix(path.Base(a.VirtualPath), "IMG_001_") {
		t.Errorf("renamed file = %q", path.Base(a.VirtualPath))
	}
	if got := f.fs.Contents(phys(origin)); string(got) != "newcomer" {
		t.Errorf("occupying file clobbered: %q", got)
	}
	if got := f.fs.Contents(phys(a.VirtualPath)); string(got) != "trashed" {
		t.Errorf("restored content = %q", got)
	}
}

func TestRestoreAssets_RecreatesPurgedFolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}
	origin := "/assets/users/42/Albums/Summer/IMG_001.jpg"
	f.seedAsset(t, "a1", "42", origin, []byte("x"))

	if err := f.svc.DeleteAssets(context.Background(), []string{"a1"}, actor); err != nil {
		t.Fatalf("DeleteAssets() error = %v", err)
	}

	// Simulate the origin folder row disappearing while the asset sat in trash.
	deleted := f.mustFindAsset(t, "a1")
	deleted.DeletedFromFolderID = "gone"
	if err := f.store.UpdateAsset(deleted); err != nil {
		t.Fatalf("UpdateAsset() error = %v", err)
	}

	if err := f.svc.RestoreAssets(context.Background(), []string{"a1"}, actor); err != nil {
		t.Fatalf("RestoreAssets() error = %v", err)
	}

	restored := f.mustFindAsset(t, "a1")
	if restored.VirtualPath != origin {
		t.Errorf("VirtualPath = %q, want %q", restored.VirtualPath, origin)
	}
	folder, err := f.store.FindFolderByID(restored.FolderID)
	if err != nil || folder == nil {
		t.Fatalf("restored folder missing: %v", err)
	}
	if folder.Path != path.Dir(origin) {
		t.Errorf("folder path = %q, want %q", folder.Path, path.Dir(origin))
	}
}

func TestRestoreAll_OnlyOwnAssets(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user42 := library.Actor{UserID: "42"}
	user7 := library.Actor{UserID: "7"}
	admin := library.Actor{UserID: "1", Admin: true}

	f.seedAsset(t, "a1", "42", "/assets/users/42/IMG_001.jpg", []byte("a"))
	f.seedAsset(t, "a2", "7", "/assets/users/7/IMG_002.jpg", []byte("b"))

	if err := f.svc.DeleteAssets(context.Background(), []string{"a1"}, user42); err != nil {
		t.Fatalf("DeleteAssets(42) error = %v", err)
	}
	if err := f.svc.DeleteAssets(context.Background(), []string{"a2"}, user7); err != nil {
		t.Fatalf("DeleteAssets(7) error = %v", err)
	}

	count, err := f.svc.RestoreAll(context.Background(), user42)
	if err != nil {
		t.Fatalf("RestoreAll() error = %v", err)
	}
	if count != 1 {
		t.Errorf("RestoreAll() count = %d, want 1", count)
	}
	if f.mustFindAsset(t, "a1").Deleted() {
		t.Error("own asset not restored")
	}
	if !f.mustFindAsset(t, "a2").Deleted() {
		t.Error("other user's asset was restored")
	}

	// Admin sweeps up the rest.
	count, err = f.svc.RestoreAll(context.Background(), admin)
	if err != nil {
		t.Fatalf("admin RestoreAll() error = %v", err)
	}
	if count != 1 {
		t.Errorf("admin RestoreAll() count = %d, want 1", count)
	}
	if f.mustFindAsset(t, "a2").Deleted() {
		t.Error("asset not restored by admin")
	}
}

func TestRestoreAssets_EmptyIDList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.svc.RestoreAssets(context.Background(), nil, library.Actor{UserID: "42"})
	if !errors.Is(err, library.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}
