//go:build linux

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
	return DevIno{Dev: stat.Dev, Ino: stat.Ino}, true
}

// setFileTimes sets mtime on an open file descriptor, leaving atime
// untouched.
func setFileTimes(rawFd int, fdPath string, modTime time.Time) error {
	times := []unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(modTime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(rawFd, "", times, unix.AT_EMPTY_PATH); err != nil {
		// Some filesystems don't support AT_EMPTY_PATH.
		if err2 := unix.UtimesNanoAt(unix.AT_FDCWD, fdPath, times, 0); err2 != nil {
			return errors.Errorf("utimensat: %w", err)
		}
	}
	return nil
}
