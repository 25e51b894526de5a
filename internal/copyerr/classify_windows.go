package copyerr

import (
	"io/fs"
	"syscall"

	"gitlab.com/tozd/go/errors"
)

// ERROR_SHARING_VIOLATION and ERROR_LOCK_VIOLATION, the two errnos Windows
// reports for files held open by another process.
const (
	errSharingViolation syscall.Errno = 32
	errLockViolation    syscall.Errno = 33
)

func classifyPlatform(err error) Kind {
	switch {
	case errors.Is(err, errSharingViolation), errors.Is(err, errLockViolation):
		return Locked
	case errors.Is(err, fs.ErrPermission):
		// Windows surfaces most sharing conflicts as access denied.
		return Locked
	case errors.Is(err, fs.ErrNotExist):
		return Fatal
	}
	return Transient
}
