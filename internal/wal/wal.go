// Package wal implements a length-prefixed, CRC-guarded write-ahead log of
// fixed 16-byte-keyed entries.
package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/mileswatson/locker-db/internal/vfs"
	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

// ErrCorrupt names the condition of a record that fails its checksum or is
// structurally invalid. Replay does not return it: decodeRecord reports such
// a record like a short read (ok=false), and Open keeps the recovered prefix
// and discards everything after it.
var ErrCorrupt = fmt.Errorf("wal: corrupt record")

const (
	crcSize    = 4
	lengthSize = 8
	headerSize = crcSize + lengthSize
)

// WAL is a durable, append-only record of entries, written before the
// in-memory write buffer acknowledges a write.
type WAL struct {
	path string
	file *vfs.AppendFile
}

// Open opens or creates the WAL at path. If the file already has content,
// it is decoded sequentially; the first record that fails to decode (or is
// truncated) ends replay silently and the valid prefix is kept, discarding
// any torn tail so future appends do not land after undecodable bytes.
func Open(path string) (w *WAL, recovered []record.Entry, err error) {
	af, err := vfs.CreateAppend(path)
	if err != nil {
		return nil, nil, err
	}

	data, err := af.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	var entries []record.Entry
	validLen := int64(0)
	pos := 0
	for pos < len(data) {
		e, n, ok := decodeRecord(data[pos:])
		if !ok {
			break
		}
		entries = append(entries, e)
		pos += n
		validLen = int64(pos)
	}

	if validLen != int64(len(data)) {
		if err := af.TruncateTo(validLen); err != nil {
			af.Close()
			return nil, nil, err
		}
	}

	return &WAL{path: path, file: af}, entries, nil
}

// Write serializes entry and appends it, fsyncing before returning. The
// contract is "no acknowledgement before durability"; one fsync per append
// is acceptable.
func (w *WAL) Write(e record.Entry) error {
	return w.file.Append(encodeRecord(e))
}

// Clear truncates the WAL to zero length and fsyncs.
func (w *WAL) Clear() error {
	return w.file.Clear()
}

// Close closes the file and returns its path so the caller can repurpose
// (rename or delete) it.
func (w *WAL) Close() (string, error) {
	return w.file.Close()
}

// Path reports the WAL's file path.
func (w *WAL) Path() string {
	return w.path
}

// encodeRecord serializes one entry as:
//
//	CRC32 (4, BE) | LENGTH (8, BE) | KEY (16) | KIND (1) | DATA
//
// LENGTH counts everything after itself (key + kind + data); CRC32
// checksums everything after the CRC field.
func encodeRecord(e record.Entry) []byte {
	payload := record.EncodePayload(e.Value)
	// payload[0] is already the kind byte; data follows.
	length := uint64(key.Size + len(payload))

	buf := make([]byte, headerSize+int(length))
	binary.BigEndian.PutUint64(buf[crcSize:headerSize], length)
	copy(buf[headerSize:headerSize+key.Size], e.Key[:])
	copy(buf[headerSize+key.Size:], payload)

	crc := crc32.ChecksumIEEE(buf[crcSize:])
	binary.BigEndian.PutUint32(buf[:crcSize], crc)

	return buf
}

// decodeRecord decodes one record from the front of b. ok is false if b
// does not contain a complete, valid record (short read or bad checksum);
// the caller must treat this as end-of-log, not as a hard error.
func decodeRecord(b []byte) (e record.Entry, consumed int, ok bool) {
	if len(b) < headerSize {
		return record.Entry{}, 0, false
	}
	storedCRC := binary.BigEndian.Uint32(b[:crcSize])
	length := binary.BigEndian.Uint64(b[crcSize:headerSize])

	if length < key.Size+1 {
		return record.Entry{}, 0, false
	}
	total := headerSize + int(length)
	if total < 0 || total > len(b) {
		return record.Entry{}, 0, false
	}

	body := b[crcSize:total]
	if crc32.ChecksumIEEE(body) != storedCRC {
		return record.Entry{}, 0, false
	}

	rest := b[headerSize:total]
	var k key.Key
	copy(k[:], rest[:key.Size])

	val, err := record.DecodePayload(rest[key.Size:])
	if err != nil {
		return record.Entry{}, 0, false
	}

	return record.Entry{Key: k, Value: val}, total, true
}
