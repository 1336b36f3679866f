package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"medialib/internal/library"
)

// archiveUnderTest lets the shared behavior tests run against every
// local implementation.
func archives(t *testing.T) map[string]library.Archive {
	t.Helper()
	fsArchive, err := NewFileSystemArchive(t.TempDir())
	if err != nil {
		t.Fatalf("creating filesystem archive: %v", err)
	}
	return map[string]library.Archive{
		"memory":     NewMemoryArchive(),
		"filesystem": fsArchive,
	}
}

func TestArchive_PutGetRoundTrip(t *testing.T) {
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			if err := a.PutContent("checksum-1", strings.NewReader("media bytes")); err != nil {
				t.Fatalf("PutContent() error = %v", err)
			}

			var buf bytes.Buffer
			if err := a.GetContent("checksum-1", &buf); err != nil {
				t.Fatalf("GetContent() error = %v", err)
			}
			if buf.String() != "media bytes" {
				t.Errorf("content = %q, want %q", buf.String(), "media bytes")
			}
		})
	}
}

func TestArchive_HasContent(t *testing.T) {
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := a.HasContent("missing")
			if err != nil {
				t.Fatalf("HasContent() error = %v", err)
			}
			if ok {
				t.Error("expected false for missing checksum")
			}

			if err := a.PutContent("c1", strings.NewReader("x")); err != nil {
				t.Fatalf("PutContent() error = %v", err)
			}
			ok, err = a.HasContent("c1")
			if err != nil {
				t.Fatalf("HasContent() error = %v", err)
			}
			if !ok {
				t.Error("expected true for stored checksum")
			}
		})
	}
}

func TestArchive_PutIsIdempotent(t *testing.T) {
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			if err := a.PutContent("c1", strings.NewReader("same")); err != nil {
				t.Fatalf("first PutContent() error = %v", err)
			}
			if err := a.PutContent("c1", strings.NewReader("same")); err != nil {
				t.Fatalf("second PutContent() error = %v", err)
			}

			var buf bytes.Buffer
			if err := a.GetContent("c1", &buf); err != nil {
				t.Fatalf("GetContent() error = %v", err)
			}
			if buf.String() != "same" {
				t.Errorf("content = %q", buf.String())
			}
		})
	}
}

func TestArchive_GetMissingFails(t *testing.T) {
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := a.GetContent("missing", &buf); err == nil {
				t.Fatal("expected error for missing checksum")
			}
		})
	}
}

func TestFileSystemArchive_ValidateSetup(t *testing.T) {
	t.Run("passes for a fresh archive", func(t *testing.T) {
		a, err := NewFileSystemArchive(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemArchive() error = %v", err)
		}
		if err := a.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("fails when content dir is removed", func(t *testing.T) {
		root := t.TempDir()
		a, err := NewFileSystemArchive(root)
		if err != nil {
			t.Fatalf("NewFileSystemArchive() error = %v", err)
		}
		if err := os.RemoveAll(filepath.Join(root, "content")); err != nil {
			t.Fatalf("removing content dir: %v", err)
		}
		if err := a.ValidateSetup(); err == nil {
			t.Error("expected error after removing content dir")
		}
	})
}

func TestFileSystemArchive_NoTempLeftovers(t *testing.T) {
	root := t.TempDir()
	a, err := NewFileSystemArchive(root)
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}
	if err := a.PutContent("c1", strings.NewReader("bytes")); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "content"))
	if err != nil {
		t.Fatalf("reading content dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "c1" {
		t.Errorf("unexpected content dir entries: %v", entries)
	}
}
