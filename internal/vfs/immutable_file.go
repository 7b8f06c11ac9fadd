package vfs

import (
	"fmt"
	"io"
	"os"
)

// ImmutableFile is a file written once and thereafter only read and,
// eventually, deleted — the shape of an SSTable's two on-disk files. Its
// length is measured once and memoized.
type ImmutableFile struct {
	path string
	size int64
}

// CreateImmutable writes the full content to path and fsyncs before
// returning.
func CreateImmutable(path string, data []byte) (*ImmutableFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("vfs: create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("vfs: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("vfs: sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("vfs: close %s: %w", path, err)
	}
	return &ImmutableFile{path: path, size: int64(len(data))}, nil
}

// OpenImmutable opens an existing file, measuring and memoizing its length.
func OpenImmutable(path string) (*ImmutableFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("vfs: stat %s: %w", path, err)
	}
	return &ImmutableFile{path: path, size: info.Size()}, nil
}

// Size returns the file's memoized length.
func (f *ImmutableFile) Size() int64 {
	return f.size
}

// Path reports the file's path.
func (f *ImmutableFile) Path() string {
	return f.path
}

// Reader opens an independent read-only handle. Multiple concurrent readers
// of the same ImmutableFile are permitted.
func (f *ImmutableFile) Reader() (*FileReader, error) {
	h, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("vfs: open reader %s: %w", f.path, err)
	}
	return &FileReader{f: h, size: f.size}, nil
}

// Delete removes the file. The error is returned rather than swallowed so
// a caller tracking this file in a manifest can decide how to react.
func (f *ImmutableFile) Delete() error {
	if err := os.Remove(f.path); err != nil {
		return fmt.Errorf("vfs: delete %s: %w", f.path, err)
	}
	return nil
}

// FileReader is a short-lived, independent read-only handle onto an
// ImmutableFile.
type FileReader struct {
	f    *os.File
	size int64
}

// Size returns the reader's file's length.
func (r *FileReader) Size() int64 {
	return r.size
}

// Read returns length bytes starting at offset.
func (r *FileReader) Read(offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+int64(length) > r.size {
		return nil, fmt.Errorf("vfs: read out of range: offset=%d length=%d size=%d", offset, length, r.size)
	}
	buf := make([]byte, length)
	if _, err := r.f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("vfs: read %s: %w", r.f.Name(), err)
	}
	return buf, nil
}

// ReadAll returns the entire file content.
func (r *FileReader) ReadAll() ([]byte, error) {
	return r.Read(0, int(r.size))
}

// Close releases the reader's file handle.
func (r *FileReader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("vfs: close reader %s: %w", r.f.Name(), err)
	}
	return nil
}
