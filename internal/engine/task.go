package engine

import (
	"io/fs"
	"time"
)

// FileTask describes a single source file queued for copying into its
// bucket under the destination root.
type FileTask struct {
	// SrcPath is the absolute path of the source entry. For symbolic
	// links this is the link path; opening it follows the link.
	SrcPath string

	// RelPath is the entry's path relative to the source root, using
	// the OS separator. Reports and events identify files by RelPath.
	RelPath string

	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// DevIno identifies a directory by device and inode. The scanner uses
// it to detect traversal cycles introduced by symbolic links.
type DevIno struct {
	Dev uint64
	Ino uint64
}
