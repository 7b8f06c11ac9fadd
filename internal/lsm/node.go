// Package lsm implements the durable level list: a chain of immutable
// SSTables linked youngest-to-oldest, mutated by a background compactor,
// with a write buffer in front and a gob-encoded manifest tying the whole
// thing together on disk.
package lsm

import (
	"sync"
	"sync/atomic"

	"github.com/mileswatson/locker-db/internal/sstable"
)

// slot is a mutable, refcounted pointer to a Node. Readers must observe
// the pointer and bump the target's reference count as a single atomic
// step, or a concurrent store could swap the pointer out from under them
// between the read and the increment.
type slot struct {
	mu sync.RWMutex
	n  *Node
}

// acquire reads the current node and increments its reference count under
// one critical section. The caller owns the returned reference and must
// call release, directly or by passing it on, exactly once. Returns nil at
// the tail of the chain.
func (s *slot) acquire() *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.n
	if n != nil {
		n.refs.Add(1)
	}
	return n
}

// store installs n, which must already carry a reference earmarked for
// this slot, and releases whatever reference this slot previously held.
func (s *slot) store(n *Node) {
	s.mu.Lock()
	old := s.n
	s.n = n
	s.mu.Unlock()
	if old != nil {
		old.release()
	}
}

// peek reads the pointer without touching the refcount. Only safe when the
// caller already holds a reference that guarantees the target outlives the
// call, such as registry.Prune reading a node's own outgoing edge while
// that node is the one being reclaimed.
func (s *slot) peek() *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.n
}

// Node is one link in the level list: an immutable table plus the next,
// strictly older, node.
type Node struct {
	id    string
	table *sstable.SSTable
	next  slot

	refs     atomic.Int32
	registry *Registry
}

// newNode builds a node pointing at next (which may be nil) and registers
// it. The node starts with two references: one held by the registry's own
// bookkeeping, one earmarked for whichever slot the caller is about to
// store it into via slot.store. If next is non-nil, this node's outgoing
// edge takes its own reference to it.
func newNode(table *sstable.SSTable, next *Node, registry *Registry) *Node {
	n := &Node{
		id:       table.ID(),
		table:    table,
		registry: registry,
	}
	n.refs.Store(2)
	if next != nil {
		next.refs.Add(1)
	}
	n.next.n = next
	registry.register(n)
	return n
}

// release drops one reference. It never deletes anything itself;
// reclamation only happens in Registry.Prune's scan, the single place
// allowed to observe refs==1 and act on it.
func (n *Node) release() {
	n.refs.Add(-1)
}

// Table exposes the node's backing SSTable for point lookups.
func (n *Node) Table() *sstable.SSTable {
	return n.table
}

// Next acquires a reference to the next, older node, or nil at the tail.
func (n *Node) Next() *Node {
	return n.next.acquire()
}
