// Package resolve hands out collision-free destination names per bucket.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/mavery/cubby/internal/bucket"
)

// Resolver guarantees that concurrent copies into the same bucket never
// claim the same destination name. A plain existence check is racy: two
// workers can both see "a.jpg" free and both write it. Claims therefore
// live in an in-memory set per bucket, checked and inserted under that
// bucket's lock together with the on-disk check that covers files from
// earlier runs. Buckets lock independently.
type Resolver struct {
	mu      sync.Mutex
	buckets map[string]*bucketClaims
}

type bucketClaims struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func New() *Resolver {
	return &Resolver{buckets: make(map[string]*bucketClaims)}
}

func (r *Resolver) claims(dir string) *bucketClaims {
	r.mu.Lock()
	defer r.mu.Unlock()
	bc, ok := r.buckets[dir]
	if !ok {
		bc = &bucketClaims{names: make(map[string]struct{})}
		r.buckets[dir] = bc
	}
	return bc
}

// Reservation is a claim on one destination name, held until the copy
// lands (Commit) or is abandoned (Release).
type Reservation struct {
	bc   *bucketClaims
	name string

	// Path is the reserved destination path, dir joined with the name.
	Path string
}

// Commit drops the in-memory claim once the renamed file exists; the disk
// is authoritative from here on.
func (res *Reservation) Commit() { res.unclaim() }

// Release returns an abandoned name to the pool so no name stays claimed
// without a file ever appearing.
func (res *Reservation) Release() { res.unclaim() }

func (res *Reservation) unclaim() {
	res.bc.mu.Lock()
	delete(res.bc.names, res.name)
	res.bc.mu.Unlock()
}

// Reserve returns a path inside dir that no in-flight reservation holds
// and that does not exist on disk. desired must be a bare file name. When
// desired is taken, " (1)", " (2)", ... are inserted before the extension
// in increasing order until a free slot is found.
func (r *Resolver) Reserve(dir, desired string) (*Reservation, error) {
	bc := r.claims(dir)
	bc.mu.Lock()
	defer bc.mu.Unlock()

	stem, ext := bucket.SplitName(desired)
	name := desired
	for n := 1; ; n++ {
		if _, held := bc.names[name]; !held {
			path := filepath.Join(dir, name)
			_, err := os.Lstat(path)
			switch {
			case err == nil:
				// taken on disk
			case os.IsNotExist(err):
				bc.names[name] = struct{}{}
				return &Reservation{bc: bc, name: name, Path: path}, nil
			default:
				return nil, errors.Errorf("probing %s: %w", path, err)
			}
		}
		name = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
}
