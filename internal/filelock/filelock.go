// Package filelock probes advisory locks on source files before copying.
package filelock

import (
	"os"

	"github.com/gofrs/flock"
	"gitlab.com/tozd/go/errors"

	"github.com/mavery/cubby/internal/copyerr"
)

// Probe takes and immediately releases a shared flock on path. A held
// exclusive lock makes the probe fail with an error that classifies as
// Locked, so the retry loop can wait the lock out instead of copying a
// file mid-write. flock is advisory; non-cooperating writers and
// filesystems without flock support report the file as free.
func Probe(path string) error {
	// flock creates missing files on open, and the source tree must not
	// be written to. A vanished file surfaces through the stat error.
	if _, err := os.Lstat(path); err != nil {
		return errors.Errorf("probing %s: %w", path, err)
	}
	fl := flock.New(path)
	held, err := fl.TryRLock()
	if err != nil {
		// No flock support or unreadable file; the copy's own open will
		// surface anything real.
		return nil
	}
	if !held {
		return errors.Errorf("%s: %w", path, copyerr.ErrLocked)
	}
	_ = fl.Unlock()
	return nil
}
