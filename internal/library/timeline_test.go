package library_test

import (
	"context"
	"testing"
	"time"

	"medialib/internal/library"
	"medialib/internal/model"
)

func entryByName(entries []*model.TimelineEntry, name string) *model.TimelineEntry {
	for _, e := range entries {
		if e.FileName == name {
			return e
		}
	}
	return nil
}

func TestTimeline_MergesIndexStoreAndDevice(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}

	f.seedAsset(t, "a1", "42", "/assets/users/42/Uploads/IMG_001.jpg", []byte("indexed"))
	f.fs.AddFile(phys("/assets/users/42/Uploads/copied.png"), []byte("copied"))
	f.fs.AddFile(deviceRoot42+"/DCIM/fresh.jpg", []byte("device only"))

	entries, err := f.svc.Timeline(context.Background(), actor)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	if e := entryByName(entries, "IMG_001.jpg"); e == nil || e.Status != model.StatusSynced {
		t.Errorf("indexed entry = %+v, want status synced", e)
	}
	if e := entryByName(entries, "copied.png"); e == nil || e.Status != model.StatusCopied {
		t.Errorf("copied entry = %+v, want status copied", e)
	} else if e.VirtualPath != "/assets/users/42/Uploads/copied.png" {
		t.Errorf("copied VirtualPath = %q", e.VirtualPath)
	}
	if e := entryByName(entries, "fresh.jpg"); e == nil || e.Status != model.StatusPending {
		t.Errorf("device entry = %+v, want status pending", e)
	} else if e.VirtualPath != "/device/42/DCIM/fresh.jpg" {
		t.Errorf("device VirtualPath = %q", e.VirtualPath)
	}
}

func TestTimeline_ExcludesTrashed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}

	f.seedAsset(t, "a1", "42", "/assets/users/42/IMG_001.jpg", []byte("keep"))
	f.seedAsset(t, "a2", "42", "/assets/users/42/IMG_002.jpg", []byte("trash me"))

	if err := f.svc.DeleteAssets(context.Background(), []string{"a2"}, actor); err != nil {
		t.Fatalf("DeleteAssets() error = %v", err)
	}

	entries, err := f.svc.Timeline(context.Background(), actor)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].FileName != "IMG_001.jpg" {
		t.Errorf("remaining entry = %q", entries[0].FileName)
	}
}

func TestTimeline_EachFileAppearsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}

	// The same file name exists in the index, in the store, and on the
	// device. Only the indexed entry survives.
	f.seedAsset(t, "a1", "42", "/assets/users/42/DeviceBackup/DCIM/IMG_001.jpg", []byte("x"))
	f.fs.AddFile(deviceRoot42+"/DCIM/IMG_001.jpg", []byte("x"))

	entries, err := f.svc.Timeline(context.Background(), actor)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Status != model.StatusSynced {
		t.Errorf("surviving status = %q, want synced", entries[0].Status)
	}
}

func TestTimeline_PermissionIsolation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.seedAsset(t, "a1", "42", "/assets/users/42/IMG_001.jpg", []byte("mine"))
	f.seedAsset(t, "a2", "7", "/assets/users/7/IMG_002.jpg", []byte("theirs"))
	f.fs.AddFile(phys("/assets/users/7/unindexed.png"), []byte("theirs too"))

	entries, err := f.svc.Timeline(context.Background(), library.Actor{UserID: "42"})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].FileName != "IMG_001.jpg" {
		t.Errorf("visible entry = %q", entries[0].FileName)
	}

	// Admin sees everything.
	admin, err := f.svc.Timeline(context.Background(), library.Actor{UserID: "1", Admin: true})
	if err != nil {
		t.Fatalf("admin Timeline() error = %v", err)
	}
	if len(admin) != 3 {
		t.Errorf("admin len(entries) = %d, want 3", len(admin))
	}
}

func TestTimeline_ReadGrantRevealsSharedFolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	a := f.seedAsset(t, "a1", "42", "/assets/users/42/shared/IMG_001.jpg", []byte("shared"))
	owner := library.Actor{UserID: "42"}
	if err := f.svc.GrantPermission(owner, a.FolderID, "7", true, false, false, false); err != nil {
		t.Fatalf("GrantPermission() error = %v", err)
	}

	entries, err := f.svc.Timeline(context.Background(), library.Actor{UserID: "7"})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if e := entryByName(entries, "IMG_001.jpg"); e == nil {
		t.Error("shared asset not visible to grantee")
	}
}

func TestTimeline_NewestFirst(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}

	old := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	f.fs.AddFileAt(phys("/assets/users/42/old.png"), []byte("a"), old)
	f.fs.AddFileAt(phys("/assets/users/42/newer.png"), []byte("b"), newer)
	f.seedAsset(t, "a1", "42", "/assets/users/42/IMG_001.jpg", []byte("c"))

	entries, err := f.svc.Timeline(context.Background(), actor)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	// Seeded asset carries 2024-05-31, then newer.png, then old.png.
	want := []string{"IMG_001.jpg", "newer.png", "old.png"}
	for i, name := range want {
		if entries[i].FileName != name {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].FileName, name)
		}
	}
}

func TestTimeline_SyncingStatusForIncompleteMove(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := library.Actor{UserID: "42"}

	a := f.seedAsset(t, "a1", "42", "/assets/users/42/IMG_001.jpg", []byte("x"))
	pm := &model.PendingMove{
		ID:          "pm-1",
		AssetID:     a.ID,
		Op:          "trash",
		SrcPath:     phys(a.VirtualPath),
		DestPath:    phys("/assets/users/42/_trash/2024-06-01/x.jpg"),
		VirtualPath: "/assets/users/42/_trash/2024-06-01/x.jpg",
		FolderID:    a.FolderID,
		CreatedAt:   f.clock.Now().UTC(),
	}
	if err := f.store.CreatePendingMove(pm); err != nil {
		t.Fatalf("CreatePendingMove() error = %v", err)
	}

	entries, err := f.svc.Timeline(context.Background(), actor)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if e := entryByName(entries, "IMG_001.jpg"); e == nil || e.Status != model.StatusSyncing {
		t.Errorf("entry = %+v, want status syncing", e)
	}
}
