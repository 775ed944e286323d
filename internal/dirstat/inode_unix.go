//go:build unix

package dirstat

import (
	"io/fs"
	"syscall"
)

// fileID extracts the inode and hard-link count from link-aware stat output.
func fileID(info fs.FileInfo) (inode, links uint64, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}

	return uint64(stat.Ino), uint64(stat.Nlink), true //nolint:unconvert // Field widths differ per platform
}
