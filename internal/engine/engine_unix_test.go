//go:build unix

package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavery/cubby/internal/copyerr"
)

// lockFile takes an exclusive flock on path for the duration of the
// test, simulating another process holding the file.
func lockFile(t *testing.T, path string) {
	t.Helper()
	fl := flock.New(path)
	locked, err := fl.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = fl.Unlock() })
}

func TestLockedFileSkippedWhenOptedIn(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "held.txt"), "busy")
	writeFile(t, filepath.Join(src, "free.txt"), "ok")
	lockFile(t, filepath.Join(src, "held.txt"))

	cfg := testConfig(src, dst)
	cfg.Retries = 1
	cfg.SkipLocked = true
	summary := runEngine(t, context.Background(), cfg)

	assert.Equal(t, int64(1), summary.Copied)
	assert.Equal(t, int64(1), summary.Skipped)
	assert.Equal(t, int64(1), summary.SkippedLocked)
	assert.Zero(t, summary.Failed)

	assert.Equal(t, []string{"free.txt"}, filesIn(t, dst, "txt"))
}

func TestLockedFileFailsWithoutOptIn(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "held.txt"), "busy")
	lockFile(t, filepath.Join(src, "held.txt"))

	cfg := testConfig(src, dst)
	cfg.Retries = 1
	summary := runEngine(t, context.Background(), cfg)

	assert.Equal(t, int64(1), summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "held.txt", summary.Failures[0].Path)
	assert.Equal(t, copyerr.Locked, summary.Failures[0].Kind)
	// First attempt plus one retry.
	assert.Equal(t, 2, summary.Failures[0].Attempts)
}

func TestUnreadableSubdirDoesNotStopRun(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "ok.txt"), "fine")
	sealed := filepath.Join(src, "sealed")
	writeFile(t, filepath.Join(sealed, "hidden.txt"), "hidden")
	require.NoError(t, os.Chmod(sealed, 0o000))
	t.Cleanup(func() { _ = os.Chmod(sealed, 0o755) })

	summary := runEngine(t, context.Background(), testConfig(src, dst))

	assert.Equal(t, int64(1), summary.Copied)
	assert.Equal(t, int64(1), summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "sealed", summary.Failures[0].Path)
	assert.Equal(t, 1, summary.ExitCode())
}
