//go:build !linux && !darwin

package engine

import (
	"io/fs"
	"os"
	"time"
)

// fileID is unavailable without Stat_t, so symlink cycle detection is
// best-effort only on these platforms.
func fileID(_ fs.FileInfo) (DevIno, bool) {
	return DevIno{}, false
}

func setFileTimes(_ int, fdPath string, modTime time.Time) error {
	return os.Chtimes(fdPath, modTime, modTime)
}
