//go:build !linux

package fs

import (
	"io/fs"
	"time"
)

// createdTime falls back to the modification time on platforms without
// a usable stat change time.
func createdTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
