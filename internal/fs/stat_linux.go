//go:build linux

package fs

import (
	"io/fs"
	"syscall"
	"time"
)

// createdTime returns the best available creation time for a file.
// Most Unix filesystems do not expose a birth time, so the change time
// is used when available, falling back to the modification time.
func createdTime(info fs.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		ctime := time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
		if ctime.Before(info.ModTime()) {
			return ctime
		}
	}
	return info.ModTime()
}
