// Package vfs implements the two file primitives the storage engine builds
// everything else on top of: an append-only file that data-syncs on every
// append, and an immutable file supporting independent concurrent readers.
package vfs

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AppendFile wraps a single OS file opened for append. Every Append issues
// an OS-level data sync before returning success. Concurrent appends on one
// instance are not supported by the file handle itself; a mutex around it
// is required whenever multiple producers exist, so AppendFile provides one.
type AppendFile struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// CreateAppend opens path for append, creating it if necessary. Existing
// content is left alone; writes land after whatever is already there.
func CreateAppend(path string) (*AppendFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("vfs: open append file %s: %w", path, err)
	}
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return nil, fmt.Errorf("vfs: seek append file %s: %w", path, err)
	}
	return &AppendFile{f: f, path: path}, nil
}

// Append writes b to the end of the file and syncs before returning.
// A caller that gets a nil error back can rely on b being durable.
func (a *AppendFile) Append(b []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.f.Write(b); err != nil {
		return fmt.Errorf("vfs: append write %s: %w", a.path, err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("vfs: append sync %s: %w", a.path, err)
	}
	return nil
}

// Size returns the current file size.
func (a *AppendFile) Size() (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	info, err := a.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("vfs: stat %s: %w", a.path, err)
	}
	return info.Size(), nil
}

// Clear truncates the file to zero length and syncs.
func (a *AppendFile) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.f.Truncate(0); err != nil {
		return fmt.Errorf("vfs: truncate %s: %w", a.path, err)
	}
	if _, err := a.f.Seek(0, os.SEEK_SET); err != nil {
		return fmt.Errorf("vfs: seek %s: %w", a.path, err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("vfs: clear sync %s: %w", a.path, err)
	}
	return nil
}

// ReadAll returns the file's full current content, independent of the
// append position. Used only during WAL replay on open, before any new
// appends for this session have happened.
func (a *AppendFile) ReadAll() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	info, err := a.f.Stat()
	if err != nil {
		return nil, fmt.Errorf("vfs: stat %s: %w", a.path, err)
	}
	buf := make([]byte, info.Size())
	if _, err := a.f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("vfs: read %s: %w", a.path, err)
	}
	return buf, nil
}

// TruncateTo truncates the file to exactly n bytes and syncs, then
// repositions the append cursor at the new end. Used to discard a torn
// tail record discovered during WAL replay so future appends do not land
// after un-decodable garbage.
func (a *AppendFile) TruncateTo(n int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.f.Truncate(n); err != nil {
		return fmt.Errorf("vfs: truncate %s: %w", a.path, err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("vfs: truncate sync %s: %w", a.path, err)
	}
	if _, err := a.f.Seek(n, os.SEEK_SET); err != nil {
		return fmt.Errorf("vfs: seek %s: %w", a.path, err)
	}
	return nil
}

// Close closes the underlying handle and returns the path so the caller can
// repurpose (rename or delete) the file.
func (a *AppendFile) Close() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.f.Close(); err != nil {
		return a.path, fmt.Errorf("vfs: close %s: %w", a.path, err)
	}
	return a.path, nil
}

// Path reports the file's path.
func (a *AppendFile) Path() string {
	return a.path
}
