package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mavery/cubby/internal/engine"
	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/report"
)

// createSourceTree populates root with a mixed tree:
//
//	photos/a.JPG       ("photo upper")
//	pics/a.jpg         ("photo lower")
//	docs/readme        (no extension)
//	docs/notes.txt
//	archive.tar.gz
//	.bashrc            (dotfile)
//	empty.bin          (0 bytes)
//	tmp/scratch.log    (exclusion target in several tests)
func createSourceTree(t *testing.T, root string) {
	t.Helper()
	writeFile(t, filepath.Join(root, "photos", "a.JPG"), "photo upper")
	writeFile(t, filepath.Join(root, "pics", "a.jpg"), "photo lower")
	writeFile(t, filepath.Join(root, "docs", "readme"), "plain readme")
	writeFile(t, filepath.Join(root, "docs", "notes.txt"), "some notes")
	writeFile(t, filepath.Join(root, "archive.tar.gz"), "tarball bytes")
	writeFile(t, filepath.Join(root, ".bashrc"), "export PS1")
	writeFile(t, filepath.Join(root, "empty.bin"), "")
	writeFile(t, filepath.Join(root, "tmp", "scratch.log"), "scratch")
}

// sourceTreeFiles is the number of regular files createSourceTree makes.
const sourceTreeFiles = 8

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testConfig returns a run config sized for tests: modest concurrency
// and fast retries.
func testConfig(src, dst string) engine.Config {
	return engine.Config{
		Source:      src,
		Destination: dst,
		Concurrency: 4,
		Retries:     2,
		RetryDelay:  10 * time.Millisecond,
	}
}

// runEngine executes a run with a fresh aggregator and requires it to
// start successfully.
func runEngine(t *testing.T, ctx context.Context, cfg engine.Config) report.Summary {
	t.Helper()
	summary, err := engine.Run(ctx, cfg, report.NewAggregator())
	require.NoError(t, err)
	return summary
}

// bucketNames returns the sorted directory names directly under dst.
func bucketNames(t *testing.T, dst string) []string {
	t.Helper()
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// filesIn returns the sorted file names inside one bucket.
func filesIn(t *testing.T, dst, bucket string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dst, bucket))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// destContents walks every bucket and returns the multiset of file
// contents, sorted. Layout-independent comparisons use this.
func destContents(t *testing.T, dst string) []string {
	t.Helper()
	var contents []string
	err := filepath.WalkDir(dst, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		contents = append(contents, string(data))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(contents)
	return contents
}

// findTmpFiles returns any .cubby-tmp files left under root.
func findTmpFiles(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(d.Name(), ".cubby-tmp") {
			found = append(found, path)
		}
		return nil
	})
	require.NoError(t, err)
	return found
}

// collectEvents creates a buffered event channel that records all
// events. The getter closes the channel and waits for the drain
// goroutine, so it is safe to read the slice. It may be called at most
// once; if never called, cleanup closes the channel on test exit.
func collectEvents(t *testing.T) (chan event.Event, func() []event.Event) {
	t.Helper()
	ch := make(chan event.Event, 4096)
	var collected []event.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			collected = append(collected, ev)
		}
	}()
	var once sync.Once
	drain := func() {
		once.Do(func() { close(ch) })
		<-done
	}
	t.Cleanup(drain)
	return ch, func() []event.Event {
		drain()
		return collected
	}
}
