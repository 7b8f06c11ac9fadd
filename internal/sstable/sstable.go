// Package sstable implements an immutable sorted-string-table format: a
// pair of files (offsets, strings) with binary-searched point lookup,
// plus the sealed-builder and merge operations that produce new tables.
package sstable

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/mileswatson/locker-db/internal/vfs"
	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

// OffsetEntrySize is the fixed width of one offsets-file record:
// key[16] | value_offset[8 BE] | value_length[8 BE].
const OffsetEntrySize = key.Size + 8 + 8

func offsetsPath(tablesDir, id string) string {
	return filepath.Join(tablesDir, id+".offsets")
}

func stringsPath(tablesDir, id string) string {
	return filepath.Join(tablesDir, id+".strings")
}

// SSTable wraps the two immutable files sharing one id.
type SSTable struct {
	id      string
	offsets *vfs.ImmutableFile
	strings *vfs.ImmutableFile
}

// Open wraps the two existing files named id under tablesDir.
func Open(tablesDir, id string) (*SSTable, error) {
	offsets, err := vfs.OpenImmutable(offsetsPath(tablesDir, id))
	if err != nil {
		return nil, fmt.Errorf("sstable: open offsets %s: %w", id, err)
	}
	strings_, err := vfs.OpenImmutable(stringsPath(tablesDir, id))
	if err != nil {
		return nil, fmt.Errorf("sstable: open strings %s: %w", id, err)
	}
	return &SSTable{id: id, offsets: offsets, strings: strings_}, nil
}

// ID returns the table's 32-hex id.
func (t *SSTable) ID() string {
	return t.id
}

// Len reports the number of entries: offsets.size() / 32.
func (t *SSTable) Len() int64 {
	return t.offsets.Size() / OffsetEntrySize
}

// Reader opens a short-lived reader holding one handle per file. Many
// readers of the same table may coexist.
func (t *SSTable) Reader() (*Reader, error) {
	or, err := t.offsets.Reader()
	if err != nil {
		return nil, fmt.Errorf("sstable: offsets reader %s: %w", t.id, err)
	}
	sr, err := t.strings.Reader()
	if err != nil {
		or.Close()
		return nil, fmt.Errorf("sstable: strings reader %s: %w", t.id, err)
	}
	return &Reader{offsets: or, strings: sr, len: t.Len()}, nil
}

// Delete removes both backing files. A failure here is returned as a hard
// error rather than swallowed, since a half-deleted table would otherwise
// look like live data to a later reader.
func (t *SSTable) Delete() error {
	if err := t.offsets.Delete(); err != nil {
		return err
	}
	if err := t.strings.Delete(); err != nil {
		return err
	}
	return nil
}

// Reader is a short-lived, independent read-only view of an SSTable.
type Reader struct {
	offsets *vfs.FileReader
	strings *vfs.FileReader
	len     int64
}

// Len reports the number of entries.
func (r *Reader) Len() int64 {
	return r.len
}

// Close releases both file handles.
func (r *Reader) Close() error {
	err1 := r.offsets.Close()
	err2 := r.strings.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

type offsetRecord struct {
	key    key.Key
	offset uint64
	length uint64
}

func decodeOffsetRecord(b []byte) offsetRecord {
	var rec offsetRecord
	copy(rec.key[:], b[:key.Size])
	rec.offset = binary.BigEndian.Uint64(b[key.Size : key.Size+8])
	rec.length = binary.BigEndian.Uint64(b[key.Size+8 : key.Size+16])
	return rec
}

func encodeOffsetRecord(rec offsetRecord) []byte {
	b := make([]byte, OffsetEntrySize)
	copy(b[:key.Size], rec.key[:])
	binary.BigEndian.PutUint64(b[key.Size:key.Size+8], rec.offset)
	binary.BigEndian.PutUint64(b[key.Size+8:key.Size+16], rec.length)
	return b
}

func (r *Reader) readOffset(i int64) (offsetRecord, error) {
	b, err := r.offsets.Read(i*OffsetEntrySize, OffsetEntrySize)
	if err != nil {
		return offsetRecord{}, fmt.Errorf("sstable: read offset record %d: %w", i, err)
	}
	return decodeOffsetRecord(b), nil
}

func (r *Reader) readValue(rec offsetRecord) (record.Value, error) {
	b, err := r.strings.Read(int64(rec.offset), int(rec.length))
	if err != nil {
		return record.Value{}, fmt.Errorf("sstable: read value: %w", err)
	}
	v, err := record.DecodePayload(b)
	if err != nil {
		// Decode failure here indicates on-disk corruption of a file
		// the manifest still names; there is no recovery path for a
		// table that fails to decode, so this is returned as a hard error.
		return record.Value{}, fmt.Errorf("sstable: corrupt value: %w", err)
	}
	return v, nil
}

// Read performs a binary search over [0, Len()) for k.
func (r *Reader) Read(k key.Key) (record.Value, bool, error) {
	lo, hi := int64(0), r.len
	for lo < hi {
		mid := lo + (hi-lo)/2
		rec, err := r.readOffset(mid)
		if err != nil {
			return record.Value{}, false, err
		}
		switch rec.key.Compare(k) {
		case 0:
			v, err := r.readValue(rec)
			if err != nil {
				return record.Value{}, false, err
			}
			return v, true, nil
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return record.Value{}, false, nil
}

// ReadIndex exposes the i-th entry in sorted order, used by merge.
func (r *Reader) ReadIndex(i int64) (key.Key, record.Value, error) {
	rec, err := r.readOffset(i)
	if err != nil {
		return key.Key{}, record.Value{}, err
	}
	v, err := r.readValue(rec)
	if err != nil {
		return key.Key{}, record.Value{}, err
	}
	return rec.key, v, nil
}

// sortedEntry is a (Key, Value) pair about to be written out as one table.
type sortedEntry struct {
	key   key.Key
	value record.Value
}

func sortEntries(m map[key.Key]record.Value) []sortedEntry {
	out := make([]sortedEntry, 0, len(m))
	for k, v := range m {
		out = append(out, sortedEntry{key: k, value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.Compare(out[j].key) < 0 })
	return out
}

// writeTable writes entries (already sorted ascending by key) as a new
// table under tablesDir named id, fsyncing and closing both files.
func writeTable(tablesDir, id string, entries []sortedEntry) (*SSTable, error) {
	offsetsBuf := make([]byte, 0, len(entries)*OffsetEntrySize)
	stringsBuf := make([]byte, 0, len(entries)*16)

	var runningOffset uint64
	for _, e := range entries {
		payload := record.EncodePayload(e.value)
		offsetsBuf = append(offsetsBuf, encodeOffsetRecord(offsetRecord{
			key:    e.key,
			offset: runningOffset,
			length: uint64(len(payload)),
		})...)
		stringsBuf = append(stringsBuf, payload...)
		runningOffset += uint64(len(payload))
	}

	offsets, err := vfs.CreateImmutable(offsetsPath(tablesDir, id), offsetsBuf)
	if err != nil {
		return nil, fmt.Errorf("sstable: write offsets %s: %w", id, err)
	}
	strings_, err := vfs.CreateImmutable(stringsPath(tablesDir, id), stringsBuf)
	if err != nil {
		return nil, fmt.Errorf("sstable: write strings %s: %w", id, err)
	}

	return &SSTable{id: id, offsets: offsets, strings: strings_}, nil
}
