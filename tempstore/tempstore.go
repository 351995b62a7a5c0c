// Package tempstore is the temp-file registry: it allocates uniquely-named
// paths under a working directory, tracks every path it hands out, and
// disposes of all of them (files, then the directory) on shutdown. Disposal
// never itself raises: cleanup is always best-effort, matching the
// teacher's own etl.Collector, whose disposeProviders sums up cleanup
// failures into a log line instead of propagating them.
package tempstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/lineforge/extsort/internal/xlog"
	"github.com/lineforge/extsort/sorterr"
)

// Registry hands out temp file paths under one working directory, and locks
// that directory for its own lifetime so a second Registry never shares it.
type Registry struct {
	dir      string
	ownsDir  bool
	lock     *flock.Flock
	chunkID  atomic.Int64
	mu       sync.Mutex
	created  []string
	log      xlog.Logger
}

// New creates (or reuses) a working directory. If dir is empty, a uniquely
// named subdirectory of os.TempDir() is used and will be removed on
// disposal along with its contents; a supplied dir that does not exist yet
// is created here and likewise removed on disposal. If dir already exists,
// only the files this registry creates inside it are removed.
func New(dir string, log xlog.Logger) (*Registry, error) {
	ownsDir := dir == ""
	if ownsDir {
		dir = filepath.Join(os.TempDir(), "extsort-"+uuid.NewString())
	} else if _, err := os.Stat(dir); os.IsNotExist(err) {
		ownsDir = true
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, sorterr.New(sorterr.TempUnavailable, "create working directory", err)
	}

	l := flock.New(filepath.Join(dir, ".extsort.lock"))
	locked, err := l.TryLock()
	if err != nil {
		return nil, sorterr.New(sorterr.TempUnavailable, "lock working directory", err)
	}
	if !locked {
		return nil, sorterr.New(sorterr.TempUnavailable, "lock working directory", errors.New("already in use by another engine instance"))
	}

	if log == nil {
		log = xlog.Discard()
	}
	return &Registry{dir: dir, ownsDir: ownsDir, lock: l, log: log}, nil
}

// Dir returns the working directory path.
func (r *Registry) Dir() string { return r.dir }

// ChunkPath allocates a new phase-1 sorted-run path: chunk_NNNNNN.
func (r *Registry) ChunkPath() string {
	id := r.chunkID.Add(1) - 1
	return r.register(fmt.Sprintf("chunk_%06d", id))
}

// MergePath allocates a new merge-pass output path: merge_p{pass}_i{batch}.
func (r *Registry) MergePath(pass, batch int) string {
	return r.register(fmt.Sprintf("merge_p%d_i%06d", pass, batch))
}

func (r *Registry) register(name string) string {
	path := filepath.Join(r.dir, name)
	r.mu.Lock()
	r.created = append(r.created, path)
	r.mu.Unlock()
	return path
}

// Dispose deletes every path this registry ever handed out, then the
// directory if this registry created it, then releases the lock. Every step
// is best-effort: this method never returns an error, it only logs.
func (r *Registry) Dispose() {
	r.mu.Lock()
	paths := r.created
	r.created = nil
	r.mu.Unlock()

	removed, failed := 0, 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			failed++
			r.log.Debug("tempstore: could not remove temp file", "path", p, "err", err)
			continue
		}
		removed++
	}

	if r.lock != nil {
		_ = r.lock.Unlock()
		_ = os.Remove(r.lock.Path())
	}

	if r.ownsDir {
		if err := os.Remove(r.dir); err != nil && !os.IsNotExist(err) {
			r.log.Debug("tempstore: could not remove working directory", "dir", r.dir, "err", err)
		}
	}

	if failed > 0 {
		r.log.Warn("tempstore: cleanup finished with failures", "removed", removed, "failed", failed)
	} else if removed > 0 {
		r.log.Debug("tempstore: cleanup finished", "removed", removed)
	}
}
