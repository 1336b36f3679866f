package model

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaKind classifies an asset by its content type.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// videoExtensions are the file extensions treated as video; everything
// else known to the scanner is treated as an image.
var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true, ".3gp": true,
}

// KindForName infers the media kind from a file name's extension.
func KindForName(name string) MediaKind {
	ext := strings.ToLower(filepath.Ext(name))
	if videoExtensions[ext] {
		return KindVideo
	}
	return KindImage
}

// Asset is a media file known to the index.
// The digest is unique across all rows: no two assets represent identical bytes.
// DeletedAt is set exactly when the asset resides under a _trash subtree.
type Asset struct {
	ID          string // UUID
	FileName    string
	VirtualPath string // stable client-facing path, e.g. /assets/users/42/IMG_001.jpg
	Size        int64
	Digest      string // SHA-256 checksum of file bytes (dedup key)
	Kind        MediaKind
	Width       int // 0 when not yet extracted
	Height      int
	CapturedAt  time.Time // capture/creation date from metadata extraction
	ModifiedAt  time.Time
	ScannedAt   time.Time
	FolderID    string

	// Soft-deletion markers. DeletedFromPath/DeletedFromFolderID record
	// where the asset lived before it was moved to trash so Restore can
	// put it back.
	DeletedAt           *time.Time
	DeletedFromPath     string
	DeletedFromFolderID string
}

// Deleted reports whether the asset is currently in trash.
func (a *Asset) Deleted() bool { return a.DeletedAt != nil }

// Folder is a node in the virtual path hierarchy.
// Paths are normalized: forward slashes, no trailing slash, globally unique.
// ParentID links form a forest keyed by id; there are no back-pointers.
type Folder struct {
	ID          string // UUID
	Path        string
	Name        string
	ParentID    string // empty for roots
	OwnerUserID string // explicit owner; empty only for legacy rows
	CreatedAt   time.Time
}

// FolderPermission grants capabilities over a folder to a user.
// At most one row exists per (user, folder) pair.
type FolderPermission struct {
	ID        string // UUID
	FolderID  string
	UserID    string
	GrantedBy string
	CanRead   bool
	CanWrite  bool
	CanDelete bool
	CanManage bool
	CreatedAt time.Time
}

// Owner reports whether this grant carries every capability.
func (p *FolderPermission) Owner() bool {
	return p.CanRead && p.CanWrite && p.CanDelete && p.CanManage
}

// PendingMove is a durable record of an intended physical file move,
// committed before the move happens and finalized after. Rows left
// incomplete by a crash are resolved by the reconciliation pass.
type PendingMove struct {
	ID       string // UUID
	AssetID  string
	Op       string // "trash" or "restore"
	SrcPath  string // physical source
	DestPath string // physical destination

	// Asset state to apply on finalization.
	VirtualPath         string
	FolderID            string
	DeletedAt           *time.Time
	DeletedFromPath     string
	DeletedFromFolderID string

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ScannedFile describes a file found by a directory scan. It lives only
// for the duration of a reconciliation pass and is never persisted.
type ScannedFile struct {
	Name       string // base name
	Path       string // full physical path
	Size       int64
	Kind       MediaKind
	CreatedAt  time.Time // best effort; falls back to mtime
	ModifiedAt time.Time
}

// TimelineStatus tags a timeline entry with where the file currently lives.
type TimelineStatus string

const (
	// StatusSynced marks an entry backed by an indexed Asset row.
	StatusSynced TimelineStatus = "synced"
	// StatusCopied marks a file present in the internal store but not yet indexed.
	StatusCopied TimelineStatus = "copied"
	// StatusPending marks a file present only on the user's device.
	StatusPending TimelineStatus = "pending"
	// StatusSyncing marks an in-flight transition; advisory only.
	StatusSyncing TimelineStatus = "syncing"
)

// TimelineEntry is the externally visible union of indexed assets and
// scan-derived files. Synthesized per request, never persisted.
type TimelineEntry struct {
	AssetID     string // empty for scan-derived entries
	FileName    string
	VirtualPath string
	Size        int64
	Digest      string // empty for scan-derived entries
	Kind        MediaKind
	Status      TimelineStatus
	Width       int
	Height      int
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// SortDate returns the date the timeline orders this entry by:
// the capture date for synced entries, the modification date otherwise.
func (e *TimelineEntry) SortDate() time.Time {
	if e.Status == StatusSynced || e.Status == StatusSyncing {
		return e.CreatedAt
	}
	return e.ModifiedAt
}
