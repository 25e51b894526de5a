//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves disk space ahead of the copy. fallocate is advisory
// and unsupported on some filesystems, so its error is ignored.
func preallocate(fd *os.File, size int64) {
	if size <= 0 {
		return
	}
	_ = unix.Fallocate(int(fd.Fd()), 0, 0, size)
}
