package library_test

import (
	"errors"
	"slices"
	"testing"

	"medialib/internal/library"
)

func TestAllowedFolders(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	mine := f.seedFolder(t, "/assets/users/42/Uploads", "42")
	theirs := f.seedFolder(t, "/assets/users/7/Uploads", "7")

	t.Run("user sees own folders only", func(t *testing.T) {
		ids, err := f.svc.AllowedFolders(library.Actor{UserID: "42"})
		if err != nil {
			t.Fatalf("AllowedFolders() error = %v", err)
		}
		if !slices.Contains(ids, mine.ID) {
			t.Error("own folder missing")
		}
		if slices.Contains(ids, theirs.ID) {
			t.Error("another user's folder visible")
		}
	})

	t.Run("admin sees every folder", func(t *testing.T) {
		ids, err := f.svc.AllowedFolders(library.Actor{UserID: "1", Admin: true})
		if err != nil {
			t.Fatalf("AllowedFolders() error = %v", err)
		}
		if !slices.Contains(ids, mine.ID) || !slices.Contains(ids, theirs.ID) {
			t.Errorf("admin set incomplete: %v", ids)
		}
	})

	t.Run("read grant adds a foreign folder", func(t *testing.T) {
		owner := library.Actor{UserID: "7"}
		if err := f.svc.GrantPermission(owner, theirs.ID, "42", true, false, false, false); err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}
		ids, err := f.svc.AllowedFolders(library.Actor{UserID: "42"})
		if err != nil {
			t.Fatalf("AllowedFolders() error = %v", err)
		}
		if !slices.Contains(ids, theirs.ID) {
			t.Error("granted folder missing")
		}
	})
}

func TestAllowedPathPrefixes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	shared := f.seedFolder(t, "/assets/users/7/shared", "7")
	owner := library.Actor{UserID: "7"}
	if err := f.svc.GrantPermission(owner, shared.ID, "42", true, false, false, false); err != nil {
		t.Fatalf("GrantPermission() error = %v", err)
	}

	prefixes, err := f.svc.AllowedPathPrefixes(library.Actor{UserID: "42"})
	if err != nil {
		t.Fatalf("AllowedPathPrefixes() error = %v", err)
	}

	if !slices.Contains(prefixes, "/assets/users/42/") {
		t.Errorf("own root prefix missing: %v", prefixes)
	}
	if !slices.Contains(prefixes, "/assets/users/7/shared/") {
		t.Errorf("granted folder prefix missing: %v", prefixes)
	}

	// Admins are unfiltered.
	prefixes, err = f.svc.AllowedPathPrefixes(library.Actor{UserID: "1", Admin: true})
	if err != nil {
		t.Fatalf("AllowedPathPrefixes() error = %v", err)
	}
	if prefixes != nil {
		t.Errorf("admin prefixes = %v, want nil", prefixes)
	}
}

func TestGrantPermission_Authorization(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	folder := f.seedFolder(t, "/assets/users/42/shared", "42")

	t.Run("stranger may not grant", func(t *testing.T) {
		err := f.svc.GrantPermission(library.Actor{UserID: "7"}, folder.ID, "9", true, false, false, false)
		if !errors.Is(err, library.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("owner may grant", func(t *testing.T) {
		err := f.svc.GrantPermission(library.Actor{UserID: "42"}, folder.ID, "7", true, false, false, true)
		if err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}
	})

	t.Run("manage grant delegates granting", func(t *testing.T) {
		err := f.svc.GrantPermission(library.Actor{UserID: "7"}, folder.ID, "9", true, false, false, false)
		if err != nil {
			t.Fatalf("GrantPermission() by manager error = %v", err)
		}
		perm, err := f.store.FindPermission("9", folder.ID)
		if err != nil {
			t.Fatalf("FindPermission() error = %v", err)
		}
		if perm == nil || !perm.CanRead || perm.CanDelete {
			t.Errorf("perm = %+v", perm)
		}
	})

	t.Run("unknown folder", func(t *testing.T) {
		err := f.svc.GrantPermission(library.Actor{UserID: "1", Admin: true}, "nope", "7", true, false, false, false)
		if !errors.Is(err, library.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestGrantPermission_UpsertReplaces(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	folder := f.seedFolder(t, "/assets/users/42/shared", "42")
	owner := library.Actor{UserID: "42"}

	if err := f.svc.GrantPermission(owner, folder.ID, "7", true, true, true, false); err != nil {
		t.Fatalf("first GrantPermission() error = %v", err)
	}
	if err := f.svc.GrantPermission(owner, folder.ID, "7", true, false, false, false); err != nil {
		t.Fatalf("second GrantPermission() error = %v", err)
	}

	perm, err := f.store.FindPermission("7", folder.ID)
	if err != nil {
		t.Fatalf("FindPermission() error = %v", err)
	}
	if perm == nil {
		t.Fatal("permission missing")
	}
	if perm.CanDelete || perm.CanWrite {
		t.Errorf("old capabilities survived the upsert: %+v", perm)
	}
}
