// Package record defines the engine's on-disk value representation: the
// tagged Present/Tombstone variant, and the (Key, ValueRecord) entry that
// flows from the write buffer through the WAL and into SSTables.
package record

import (
	"fmt"

	"github.com/mileswatson/locker-db/key"
)

// Kind distinguishes a live value from a deletion marker.
type Kind uint8

const (
	// Present marks a value record that carries a caller-encoded payload.
	Present Kind = iota
	// Tombstone marks a deletion; Data is always empty.
	Tombstone
)

// Value is the tagged Present/Tombstone variant stored for every key, with
// Data already reduced to its codec-encoded bytes. The engine is itself
// responsible for encoding this wrapper; the embedder's codec only ever
// sees the inner payload.
type Value struct {
	Kind Kind
	Data []byte
}

// Entry is a (Key, ValueRecord) pair: the unit that occupies one WAL
// record and, after compaction, one SSTable offset slot.
type Entry struct {
	Key   key.Key
	Value Value
}

// EncodePayload serializes a Value into the bytes stored as an SSTable
// strings-file payload: a one-byte kind discriminant followed by the data,
// if any. The byte length of this slice is exactly what the corresponding
// offsets record's value_length field must carry; no internal framing is
// needed because the offsets record already bounds the read.
func EncodePayload(v Value) []byte {
	if v.Kind == Tombstone {
		return []byte{byte(Tombstone)}
	}
	out := make([]byte, 1+len(v.Data))
	out[0] = byte(Present)
	copy(out[1:], v.Data)
	return out
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(b []byte) (Value, error) {
	if len(b) == 0 {
		return Value{}, fmt.Errorf("record: empty payload")
	}
	switch Kind(b[0]) {
	case Present:
		data := make([]byte, len(b)-1)
		copy(data, b[1:])
		return Value{Kind: Present, Data: data}, nil
	case Tombstone:
		return Value{Kind: Tombstone}, nil
	default:
		return Value{}, fmt.Errorf("record: unknown kind %d", b[0])
	}
}
