// Package bucket maps file names to the destination folder they sort into.
package bucket

import (
	"path/filepath"
	"strings"
)

// NoExtension is the bucket for files whose name has no extension.
const NoExtension = "no_extension"

// ForPath returns the bucket name for a source path: the final extension
// lower-cased, or NoExtension. A leading dot does not start an extension,
// so dotfiles like .bashrc land in NoExtension.
func ForPath(path string) string {
	_, ext := SplitName(filepath.Base(path))
	if ext == "" {
		return NoExtension
	}
	return strings.ToLower(ext[1:])
}

// SplitName splits a file name into the part before its extension and the
// extension itself, dot included. The split point is the same one ForPath
// uses: "a.tar.gz" yields ("a.tar", ".gz"), ".bashrc" yields (".bashrc", ""),
// and a trailing dot counts as part of the stem.
func SplitName(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i > 0 && i < len(name)-1 {
		return name[:i], name[i:]
	}
	return name, ""
}
