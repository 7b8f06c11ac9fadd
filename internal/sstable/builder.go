package sstable

import (
	"fmt"
	"os"

	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

// Builder is a sealed, read-only snapshot of a write buffer's entries,
// still backed by its original WAL file until Build succeeds and the
// result is durably referenced by the manifest.
type Builder struct {
	id      string
	walPath string
	entries map[key.Key]record.Value
}

// NewBuilder wraps a sealed map snapshot with its id and the WAL file that
// still holds it durably.
func NewBuilder(id, walPath string, entries map[key.Key]record.Value) *Builder {
	return &Builder{id: id, walPath: walPath, entries: entries}
}

// ID returns the builder's id, shared with the SSTable it will become.
func (b *Builder) ID() string {
	return b.id
}

// Len reports the number of distinct keys held by this builder.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Read performs a point lookup in the snapshot.
func (b *Builder) Read(k key.Key) (record.Value, bool) {
	v, ok := b.entries[k]
	return v, ok
}

// Build sorts the snapshot by key and writes it out as a new SSTable under
// tablesDir sharing this builder's id.
func (b *Builder) Build(tablesDir string) (*SSTable, error) {
	return writeTable(tablesDir, b.id, sortEntries(b.entries))
}

// DeleteWAL removes the WAL file backing this builder. Must only be called
// after Build has succeeded and the manifest has been updated to include
// the resulting table, so a crash never leaves the manifest pointing at a
// WAL file that no longer exists.
func (b *Builder) DeleteWAL() error {
	if err := os.Remove(b.walPath); err != nil {
		return fmt.Errorf("sstable: delete builder wal %s: %w", b.id, err)
	}
	return nil
}
