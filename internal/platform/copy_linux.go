//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile tries the most efficient copy method available on Linux,
// falling through on unsupported/cross-device errors.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)

	result, err := copyFileRange(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	result, err = copySendfile(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(params)
}

func copyFileRange(params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	remaining := params.SrcSize
	var roff, woff int64
	var totalWritten int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(int(srcFd.Fd()), &roff, int(params.DstFd.Fd()), &woff, int(remaining), 0)
		if err != nil {
			if totalWritten == 0 {
				return CopyResult{}, err
			}
			return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, nil
}

func copySendfile(params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	remaining := params.SrcSize
	var offset int64
	var totalWritten int64
	for remaining > 0 {
		n, err := unix.Sendfile(int(params.DstFd.Fd()), int(srcFd.Fd()), &offset, int(remaining))
		if err != nil {
			if totalWritten == 0 {
				return CopyResult{}, err
			}
			return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, nil
}
