//go:build darwin

package engine

import (
	"io/fs"
	"syscall"
	"time"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

// fileID extracts the device/inode identity from a stat result.
func fileID(info fs.FileInfo) (DevIno, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return DevIno{}, false
	}
	return DevIno{Dev: uint64(stat.Dev), Ino: stat.Ino}, true
}

// setFileTimes sets mtime on a file by path. Darwin lacks UTIME_OMIT
// and AT_EMPTY_PATH, so atime is set to mtime via path-based utimensat.
func setFileTimes(_ int, fdPath string, modTime time.Time) error {
	ts := unix.NsecToTimespec(modTime.UnixNano())
	times := []unix.Timespec{ts, ts}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, fdPath, times, 0); err != nil {
		return errors.Errorf("utimensat: %w", err)
	}
	return nil
}
