// Package memtable provides the sorted in-memory structure backing the
// live write buffer: a skip list keyed by the engine's fixed-width Key.
// Sealed builders hold a map snapshot copied out of it, not the skip list.
package memtable

import (
	"iter"

	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

// Record is one (Key, ValueRecord) pair stored in a skip list.
type Record struct {
	Key   key.Key
	Value record.Value
}

// Memtable is the ordered key-value structure the write buffer is built on.
type Memtable interface {
	Put(k key.Key, v record.Value)
	Get(k key.Key) (record.Value, bool)
	Delete(k key.Key)
	Len() int
	// Iterator yields every record in ascending key order.
	Iterator() iter.Seq[Record]
}
