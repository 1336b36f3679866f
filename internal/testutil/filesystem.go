package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"medialib/internal/library"
	"medialib/internal/model"
)

// FakeFile represents a file in the fake filesystem.
type FakeFile struct {
	Content   []byte
	ModTime   time.Time
	CreatedAt time.Time
	IsDir     bool
}

// FakeFilesystem is an in-memory filesystem for testing. It implements
// the FilesystemManager, Scanner, and Hasher interfaces so a Service can
// run entirely in memory. Paths are stored as given, cleaned with
// forward slashes.
type FakeFilesystem struct {
	mu    sync.Mutex
	files map[string]*FakeFile
}

// NewFakeFilesystem creates an empty fake filesystem.
func NewFakeFilesystem() *FakeFilesystem {
	return &FakeFilesystem{files: make(map[string]*FakeFile)}
}

func cleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// AddFile adds a file and creates its parent directories.
func (m *FakeFilesystem) AddFile(path string, content []byte) {
	m.AddFileAt(path, content, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
}

// AddFileAt adds a file with an explicit modification time.
func (m *FakeFilesystem) AddFileAt(path string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = cleanPath(path)
	m.addDirsLocked(filepath.Dir(path))
	m.files[path] = &FakeFile{
		Content:   content,
		ModTime:   modTime,
		CreatedAt: modTime,
		IsDir:     false,
	}
}

// AddDirectory adds a directory and any missing ancestors.
func (m *FakeFilesystem) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDirsLocked(cleanPath(path))
}

func (m *FakeFilesystem) addDirsLocked(path string) {
	for p := path; p != "/" && p != "." && p != ""; p = cleanPath(filepath.Dir(p)) {
		if _, ok := m.files[p]; ok {
			return
		}
		m.files[p] = &FakeFile{IsDir: true, ModTime: time.Now()}
	}
}

// Contents returns a file's content, or nil if it does not exist.
func (m *FakeFilesystem) Contents(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[cleanPath(path)]
	if !ok || f.IsDir {
		return nil
	}
	return f.Content
}

// Paths returns all file paths (not directories), sorted.
func (m *FakeFilesystem) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p, f := range m.files {
		if !f.IsDir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *FakeFilesystem) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = cleanPath(path)
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return newFakeFileInfo(path, f), nil
}

func (m *FakeFilesystem) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[cleanPath(path)]
	return ok, nil
}

func (m *FakeFilesystem) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = cleanPath(path)
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if f.IsDir {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	return io.NopCloser(bytes.NewReader(f.Content)), nil
}

func (m *FakeFilesystem) MkdirAll(path string) error {
	m.AddDirectory(path)
	return nil
}

func (m *FakeFilesystem) Move(src, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dest = cleanPath(src), cleanPath(dest)
	f, ok := m.files[src]
	if !ok {
		return &fs.PathError{Op: "rename", Path: src, Err: fs.ErrNotExist}
	}
	if _, ok := m.files[cleanPath(filepath.Dir(dest))]; !ok {
		return &fs.PathError{Op: "rename", Path: dest, Err: fs.ErrNotExist}
	}
	m.files[dest] = f
	delete(m.files, src)
	return nil
}

func (m *FakeFilesystem) Copy(src, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dest = cleanPath(src), cleanPath(dest)
	f, ok := m.files[src]
	if !ok {
		return &fs.PathError{Op: "open", Path: src, Err: fs.ErrNotExist}
	}
	if f.IsDir {
		return fmt.Errorf("cannot copy directory: %s", src)
	}
	m.files[dest] = &FakeFile{
		Content:   append([]byte{}, f.Content...),
		ModTime:   f.ModTime,
		CreatedAt: f.CreatedAt,
	}
	return nil
}

func (m *FakeFilesystem) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = cleanPath(path)
	if _, ok := m.files[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.files, path)
	return nil
}

func (m *FakeFilesystem) Glob(pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.files {
		ok, err := filepath.Match(pattern, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Scan returns the media files under root, mimicking the on-disk
// scanner: hidden entries and trash subtrees are skipped.
func (m *FakeFilesystem) Scan(root string) ([]model.ScannedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	root = cleanPath(root)
	if _, ok := m.files[root]; !ok {
		return nil, &fs.PathError{Op: "stat", Path: root, Err: fs.ErrNotExist}
	}

	var files []model.ScannedFile
	for p, f := range m.files {
		if f.IsDir || !strings.HasPrefix(p, root+"/") {
			continue
		}
		rel := strings.TrimPrefix(p, root+"/")
		if skipScanned(rel) {
			continue
		}
		name := filepath.Base(p)
		files = append(files, model.ScannedFile{
			Name:       name,
			Path:       p,
			Size:       int64(len(f.Content)),
			Kind:       model.KindForName(name),
			CreatedAt:  f.CreatedAt,
			ModifiedAt: f.ModTime,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func skipScanned(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") || seg == library.TrashDirName {
			return true
		}
	}
	return false
}

// Digest returns the SHA-256 checksum of the file's content.
func (m *FakeFilesystem) Digest(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = cleanPath(path)
	f, ok := m.files[path]
	if !ok || f.IsDir {
		return "", &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	h := sha256.Sum256(f.Content)
	return hex.EncodeToString(h[:]), nil
}

// fakeFileInfo implements fs.FileInfo
type fakeFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
	file    *FakeFile
}

func newFakeFileInfo(path string, f *FakeFile) *fakeFileInfo {
	return &fakeFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(f.Content)),
		modTime: f.ModTime,
		isDir:   f.IsDir,
		file:    f,
	}
}

func (i *fakeFileInfo) Name() string { return i.name }
func (i *fakeFileInfo) Size() int64  { return i.size }
func (i *fakeFileInfo) Mode() fs.FileMode {
	if i.isDir {
		return fs.ModeDir | 0755
	}
	return 0644
}
func (i *fakeFileInfo) ModTime() time.Time { return i.modTime }
func (i *fakeFileInfo) IsDir() bool        { return i.isDir }
func (i *fakeFileInfo) Sys() any           { return i.file }

// Compile-time checks
var (
	_ library.FilesystemManager = (*FakeFilesystem)(nil)
	_ library.Scanner           = (*FakeFilesystem)(nil)
	_ library.Hasher            = (*FakeFilesystem)(nil)
)
