//go:build unix

package copyerr

import (
	"io/fs"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

func classifyPlatform(err error) Kind {
	switch {
	case errors.Is(err, unix.EBUSY),
		errors.Is(err, unix.ETXTBSY),
		errors.Is(err, unix.EAGAIN):
		return Locked
	case errors.Is(err, unix.EINTR),
		errors.Is(err, unix.ENFILE),
		errors.Is(err, unix.EMFILE),
		errors.Is(err, unix.ENOMEM),
		errors.Is(err, unix.ENOBUFS):
		return Transient
	case errors.Is(err, fs.ErrPermission),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, unix.ENOSPC),
		errors.Is(err, unix.EROFS),
		errors.Is(err, unix.EDQUOT),
		errors.Is(err, unix.EISDIR),
		errors.Is(err, unix.ENAMETOOLONG),
		errors.Is(err, unix.ELOOP):
		return Fatal
	}
	return Transient
}
