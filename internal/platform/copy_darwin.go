//go:build darwin

package platform

import (
	"golang.org/x/sys/unix"
)

// CloneFile attempts a copy-on-write clone of src at dst, which must not
// exist yet. Works on APFS within one volume; anything else reports
// false and the caller copies byte by byte.
func CloneFile(src, dst string) bool {
	return unix.Clonefile(src, dst, 0) == nil
}

// CopyFile copies byte by byte on macOS. The caller tries CloneFile
// first, so reaching here means cloning was not possible.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)
	return copyReadWrite(params)
}
