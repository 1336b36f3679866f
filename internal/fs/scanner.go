package fs

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"medialib/internal/library"
	"medialib/internal/model"
)

// mediaExtensions lists image extensions the scanner picks up. Video
// extensions are classified by the model package.
var mediaExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".heic": true, ".heif": true, ".webp": true, ".bmp": true,
	".tif": true, ".tiff": true, ".dng": true, ".cr2": true,
	".nef": true, ".arw": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true, ".3gp": true,
}

// MediaScanner walks a physical root and returns the media files under
// it. Hidden entries, trash subtrees, and anything matched by the ignore
// patterns are skipped. Scans are read-only.
type MediaScanner struct {
	matcher *IgnoreMatcher
}

// NewMediaScanner creates a scanner with the given extra ignore
// patterns applied on top of the built-in skip rules.
func NewMediaScanner(ignorePatterns []string) *MediaScanner {
	return &MediaScanner{matcher: NewIgnoreMatcher(ignorePatterns)}
}

// Scan returns all media files under root. The root itself must exist.
func (s *MediaScanner) Scan(root string) ([]model.ScannedFile, error) {
	root = filepath.Clean(root)
	var files []model.ScannedFile

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || name == library.TrashDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !mediaExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return fmt.Errorf("calculating relative path: %w", rerr)
		}
		if s.matcher.Match(rel) {
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			return fmt.Errorf("stat %s: %w", p, ierr)
		}
		files = append(files, model.ScannedFile{
			Name:       name,
			Path:       p,
			Size:       info.Size(),
			Kind:       model.KindForName(name),
			CreatedAt:  createdTime(info),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return files, nil
}

// Compile-time check that MediaScanner implements the Scanner interface
var _ library.Scanner = (*MediaScanner)(nil)
