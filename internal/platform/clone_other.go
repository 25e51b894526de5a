//go:build !darwin

package platform

// CloneFile reports false on platforms without a file clone syscall.
func CloneFile(_, _ string) bool {
	return false
}
