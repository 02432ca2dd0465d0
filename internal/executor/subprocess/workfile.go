package subprocess

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/xid"
)

// workFile is the disposable on-disk unit holding one request's code.
// Each request gets its own uniquely named file; nothing is ever shared or
// reused across requests. The file exists only for the duration of the spawn
// call — created immediately before, removed immediately after, on every
// exit path.
type workFile struct {
	path string
}

// newWorkFile writes code into a fresh, uniquely named file and returns its
// handle. xid names are unique per process-and-time, and O_EXCL turns any
// collision into an error instead of a silent overwrite.
func newWorkFile(dir, code string) (*workFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "pyrun-"+xid.New().String()+".py")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating work file: %w", err)
	}

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing work file: %w", err)
	}
	// Close before the child opens it, so the write is fully visible.
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing work file: %w", err)
	}

	return &workFile{path: path}, nil
}

// Path returns the file's location, usable as a subprocess argument.
func (w *workFile) Path() string {
	return w.path
}

// Remove deletes the work file. It is idempotent: removing twice, or removing
// a file something else already deleted, is not an error.
func (w *workFile) Remove() error {
	err := os.Remove(w.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
