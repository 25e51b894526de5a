// Package exclude matches source paths against the run's exclusion globs.
package exclude

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// Set holds the compiled exclusion patterns for a run. Matching is
// read-only after construction, safe for concurrent use.
type Set struct {
	patterns []string
}

// New validates the glob patterns and builds a Set. A malformed pattern is
// a configuration error, reported before any traversal starts.
func New(patterns []string) (*Set, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid exclude glob %q: %w", p, doublestar.ErrBadPattern)
		}
	}
	return &Set{patterns: patterns}, nil
}

// Empty reports whether the set has no patterns. A nil set is empty.
func (s *Set) Empty() bool {
	return s == nil || len(s.patterns) == 0
}

// Match reports whether the slash-relative path, or any ancestor of it,
// matches one of the patterns. Shell-glob semantics with ** for recursive
// segments. Matching an ancestor means the scanner can prune a whole
// subtree the moment it sees the directory. A nil set matches nothing.
func (s *Set) Match(relPath string) bool {
	if s.Empty() {
		return false
	}
	rel := filepath.ToSlash(relPath)
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		for anc := parent(rel); anc != ""; anc = parent(anc) {
			if ok, _ := doublestar.Match(p, anc); ok {
				return true
			}
		}
	}
	return false
}

func parent(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}
