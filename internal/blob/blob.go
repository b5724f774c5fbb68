// Package blob is the durable content store. It holds opaque byte streams on
// the local filesystem keyed by id, and nothing else: ownership and naming
// are metadata concerns that live in the sql store, and authorization is the
// access controller's job.
//
// Writes stream into a temp file and become visible only through an
// fsync+rename commit, so a partial or interrupted upload can never be
// opened for reading.
package blob

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/filecrate/filecrate/pkg/idx"
)

// ErrNotFound reports that no committed blob exists under the given id.
var ErrNotFound = errors.New("blob: not found")

const (
	objectsDir = "objects"
	tmpDir     = "tmp"
)

// Store is a filesystem blob store rooted at one directory. Constructed once
// at startup and injected; operations on distinct ids never contend.
type Store struct {
	root string
}

// Open prepares the blob root, creating the object and temp directories.
func Open(root string) (*Store, error) {
	for _, dir := range []string{objectsDir, tmpDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0750); err != nil {
			return nil, fmt.Errorf("blob: init %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// objectPath shards committed blobs by the id's two trailing (random)
// characters to keep directory fanout bounded.
func (s *Store) objectPath(id idx.ID) string {
	name := id.String()
	return filepath.Join(s.root, objectsDir, name[len(name)-2:], name)
}

func (s *Store) tmpPath(id idx.ID) string {
	return filepath.Join(s.root, tmpDir, id.String()+".partial")
}

// Writer is an uncommitted blob write in progress. Exactly one of Commit or
// Abort must be called; until Commit the blob does not exist.
type Writer struct {
	f    *os.File
	dst  string
	n    int64
	done bool
}

// Create opens a write handle for a new blob id. The id must be fresh;
// overwriting a committed blob is not supported (content is immutable).
func (s *Store) Create(id idx.ID) (*Writer, error) {
	f, err := os.OpenFile(s.tmpPath(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return nil, fmt.Errorf("blob: create %s: %w", id, err)
	}
	return &Writer{f: f, dst: s.objectPath(id)}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.n += int64(n)
	return n, err
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 { return w.n }

// Commit makes the blob visible. The rename is atomic on a single
// filesystem, so readers observe either nothing or the complete content.
func (w *Writer) Commit() error {
	if w.done {
		return errors.New("blob: writer already finished")
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("blob: sync: %w", err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("blob: close: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.dst), 0750); err != nil {
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("blob: commit: %w", err)
	}
	if err := os.Rename(w.f.Name(), w.dst); err != nil {
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("blob: commit: %w", err)
	}
	return nil
}

// Abort discards the partial write. Calling it after Commit (or a second
// time) is a no-op so callers can defer it unconditionally.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	_ = w.f.Close()
	_ = os.Remove(w.f.Name())
}

// Open returns a lazy reader over committed content. Ownership is not
// checked here; that is the caller's responsibility.
func (s *Store) Open(id idx.ID) (io.ReadCloser, error) {
	f, err := os.Open(s.objectPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blob: open %s: %w", id, err)
	}
	return f, nil
}

// Remove permanently deletes committed content. Removal of a given id is
// atomic: a concurrent Open either streams the full content from its
// already-open handle or fails with ErrNotFound.
func (s *Store) Remove(id idx.ID) error {
	err := os.Remove(s.objectPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("blob: remove %s: %w", id, err)
	}
	return nil
}

// ListIDs walks the committed objects and returns their ids. Entries that do
// not parse as ids are skipped; the blob root is not a general-purpose
// directory and anything else in it is not ours to report.
func (s *Store) ListIDs() ([]idx.ID, error) {
	var ids []idx.ID
	root := filepath.Join(s.root, objectsDir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if id, perr := idx.Parse(d.Name()); perr == nil {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Ping verifies the blob root is still present and writable.
func (s *Store) Ping() error {
	f, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "probe-*")
	if err != nil {
		return fmt.Errorf("blob: probe: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// SweepTemp deletes abandoned partial files older than maxAge and reports
// how many were removed. In-flight uploads keep their temp files young, so a
// generous maxAge only ever catches leftovers from crashed requests.
func (s *Store) SweepTemp(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, tmpDir))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, tmpDir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
