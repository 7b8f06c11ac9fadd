// Package writebuffer implements the in-memory write buffer: a map from
// Key to ValueRecord backed 1:1 by an owned WAL.
package writebuffer

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mileswatson/locker-db/internal/fileid"
	"github.com/mileswatson/locker-db/internal/memtable"
	"github.com/mileswatson/locker-db/internal/sstable"
	"github.com/mileswatson/locker-db/internal/wal"
	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

// Buffer is a live, writable write buffer.
type Buffer struct {
	id      string
	walsDir string

	walMu sync.Mutex // per-buffer mutex over the WAL handle; serializes writers.
	w     *wal.WAL

	tableMu sync.RWMutex // guards table; held only across in-memory mutation, never I/O.
	table   *memtable.SkipList
}

func walPath(walsDir, id string) string {
	return filepath.Join(walsDir, id+".wal")
}

// Create starts a fresh write buffer with a newly minted id.
func Create(walsDir string) (*Buffer, error) {
	return Open(walsDir, fileid.New())
}

// Open reuses an existing id, replaying its WAL (used on recovery for the
// active buffer and for pending builders alike).
func Open(walsDir, id string) (*Buffer, error) {
	w, recovered, err := wal.Open(walPath(walsDir, id))
	if err != nil {
		return nil, fmt.Errorf("writebuffer: open %s: %w", id, err)
	}

	table := memtable.NewSkipList()
	for _, e := range recovered {
		table.Put(e.Key, e.Value)
	}

	return &Buffer{id: id, walsDir: walsDir, w: w, table: table}, nil
}

// ID returns the buffer's id, also the basename of its WAL file.
func (b *Buffer) ID() string {
	return b.id
}

// Write appends entry to the WAL, fsyncing, then inserts it into the map.
// Both steps happen while holding the WAL mutex so that the map's
// application order exactly matches WAL order even under concurrent
// writers; a crash between append and this call returning is safe because
// replay re-reads the WAL.
func (b *Buffer) Write(e record.Entry) error {
	b.walMu.Lock()
	defer b.walMu.Unlock()

	if err := b.w.Write(e); err != nil {
		return fmt.Errorf("writebuffer: write: %w", err)
	}

	b.tableMu.Lock()
	b.table.Put(e.Key, e.Value)
	b.tableMu.Unlock()

	return nil
}

// Read performs a concurrent lookup in the map; it never blocks on the WAL
// mutex and is never blocked by an in-flight Write's fsync.
func (b *Buffer) Read(k key.Key) (record.Value, bool) {
	b.tableMu.RLock()
	defer b.tableMu.RUnlock()
	return b.table.Get(k)
}

// Len reports the number of distinct keys currently buffered; used by the
// compactor's rotation-threshold policy.
func (b *Buffer) Len() int {
	b.tableMu.RLock()
	defer b.tableMu.RUnlock()
	return b.table.Len()
}

// Seal closes the WAL (every append to it was already fsynced by Write),
// then returns a sealed builder bearing the
// same id and a read-only snapshot of the map. The WAL file at
// wals/<id>.wal still exists on disk and is retained until the builder is
// flushed; this Buffer must not be used again after Seal.
func (b *Buffer) Seal() (*sstable.Builder, error) {
	b.walMu.Lock()
	path, err := b.w.Close()
	b.walMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("writebuffer: seal %s: %w", b.id, err)
	}

	b.tableMu.RLock()
	entries := make(map[key.Key]record.Value, b.table.Len())
	for rec := range b.table.Iterator() {
		entries[rec.Key] = rec.Value
	}
	b.tableMu.RUnlock()

	return sstable.NewBuilder(b.id, path, entries), nil
}

// Close closes the buffer's WAL file handle without sealing it into a
// builder. The buffer's entries remain on disk and fully recoverable by
// Open under the same id; this Buffer must not be used again afterward.
func (b *Buffer) Close() error {
	b.walMu.Lock()
	defer b.walMu.Unlock()
	_, err := b.w.Close()
	return err
}
