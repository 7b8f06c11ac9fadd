package memtable

import (
	"iter"
	"math/rand"

	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

const maxLevel = 32

type skipListNode struct {
	record  Record
	forward []*skipListNode
}

func newSkipListNode(k key.Key, v record.Value, levels int) *skipListNode {
	return &skipListNode{
		record:  Record{Key: k, Value: v},
		forward: make([]*skipListNode, levels+1),
	}
}

// SkipList is an in-memory, ordered key-value store over the engine's
// fixed-width Key, used by the write buffer.
type SkipList struct {
	head   *skipListNode
	levels int
	size   int
}

// NewSkipList returns an empty skip list.
func NewSkipList() *SkipList {
	var zeroKey key.Key
	return &SkipList{
		head:   newSkipListNode(zeroKey, record.Value{}, 0),
		levels: -1,
	}
}

func getRandomLevel() int {
	level := 0
	for rand.Int31()&1 == 0 && level < maxLevel {
		level++
	}
	return level
}

func (sl *SkipList) adjustLevels(level int) {
	prev := sl.head.forward
	sl.head = newSkipListNode(key.Key{}, record.Value{}, level)
	sl.levels = level
	copy(sl.head.forward, prev)
}

// Get returns the value stored for k, if any.
func (sl *SkipList) Get(k key.Key) (record.Value, bool) {
	curr := sl.head
	for level := sl.levels; level >= 0; level-- {
		for {
			next := curr.forward[level]
			if next == nil {
				break
			}
			cmp := next.record.Key.Compare(k)
			if cmp > 0 {
				break
			}
			if cmp == 0 {
				return next.record.Value, true
			}
			curr = next
		}
	}
	return record.Value{}, false
}

// Put inserts or overwrites the value stored for k.
func (sl *SkipList) Put(k key.Key, v record.Value) {
	newLevel := getRandomLevel()
	if newLevel > sl.levels {
		sl.adjustLevels(newLevel)
	}

	updates := make([]*skipListNode, sl.levels+1)
	x := sl.head
	for level := sl.levels; level >= 0; level-- {
		for x.forward[level] != nil && x.forward[level].record.Key.Compare(k) < 0 {
			x = x.forward[level]
		}
		updates[level] = x
	}

	if x.forward[0] != nil && x.forward[0].record.Key.Compare(k) == 0 {
		x.forward[0].record.Value = v
		return
	}

	newNode := newSkipListNode(k, v, newLevel)
	for level := 0; level <= newLevel; level++ {
		newNode.forward[level] = updates[level].forward[level]
		updates[level].forward[level] = newNode
	}
	sl.size++
}

// Delete removes k, if present.
func (sl *SkipList) Delete(k key.Key) {
	x := sl.head
	for level := sl.levels; level >= 0; level-- {
		for {
			next := x.forward[level]
			if next == nil || next.record.Key.Compare(k) > 0 {
				break
			}
			if next.record.Key.Compare(k) == 0 {
				x.forward[level] = next.forward[level]
				if level == 0 {
					sl.size--
				}
				break
			}
			x = next
		}
	}
	for sl.levels > 0 && sl.head.forward[sl.levels] == nil {
		sl.levels--
		sl.head.forward = sl.head.forward[:sl.levels+1]
	}
}

// Len reports the number of distinct keys stored.
func (sl *SkipList) Len() int {
	return sl.size
}

// Iterator yields every record in ascending key order.
func (sl *SkipList) Iterator() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		curr := sl.head
		for curr.forward[0] != nil {
			if !yield(curr.forward[0].record) {
				return
			}
			curr = curr.forward[0]
		}
	}
}

var _ Memtable = (*SkipList)(nil)
