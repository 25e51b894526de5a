package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const tmpSuffix = ".cubby-tmp"

// tmpPathFor returns a unique hidden temporary path in the same
// directory as dst, so the final rename never crosses filesystems.
func tmpPathFor(dst string) string {
	dir, base := filepath.Split(dst)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s%s", base, uuid.NewString()[:8], tmpSuffix))
}

// tmpRegistry tracks in-flight temporary files so an interrupted run
// can remove them on the way out.
var globalTmpRegistry = &tmpRegistry{}

type tmpRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (r *tmpRegistry) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	r.paths[path] = struct{}{}
}

func (r *tmpRegistry) remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

func (r *tmpRegistry) drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = nil
	return paths
}

// CleanupTmpFiles removes every registered temporary file. Called on
// signal-driven shutdown after the workers have stopped.
func CleanupTmpFiles() {
	for _, p := range globalTmpRegistry.drain() {
		_ = os.Remove(p)
	}
}
