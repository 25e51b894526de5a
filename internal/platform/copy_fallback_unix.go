//go:build unix && !linux && !darwin

package platform

// CopyFile falls back to read/write on other unix platforms.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)
	return copyReadWrite(params)
}
