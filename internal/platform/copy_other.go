//go:build !unix

package platform

import (
	"io"
	"os"
)

// CopyFile copies through the portable io path on platforms without
// pread/pwrite.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	n, err := io.Copy(params.DstFd, srcFd)
	return CopyResult{BytesWritten: n, Method: ReadWrite}, err
}
