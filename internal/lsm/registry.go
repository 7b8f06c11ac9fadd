package lsm

import (
	"fmt"
	"sync"
)

// Registry owns the authoritative bookkeeping entry for every node that
// still has a backing SSTable on disk. It is the single place allowed to
// reclaim a node once its only remaining reference is the registry's own
// entry (refs==1).
type Registry struct {
	mu    sync.Mutex
	nodes map[string]*Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*Node)}
}

func (r *Registry) register(n *Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.id] = n
}

// Prune repeatedly scans for orphaned nodes and reclaims them: dropping
// the registry's own entry, releasing the node's outgoing reference (which
// may orphan its child in turn), and deleting its backing table files. It
// loops until a full pass reclaims nothing, since reclaiming one node can
// make its child reclaimable on the very next pass.
func (r *Registry) Prune() error {
	for {
		var orphans []*Node

		r.mu.Lock()
		for id, n := range r.nodes {
			if n.refs.Load() == 1 {
				orphans = append(orphans, n)
				delete(r.nodes, id)
			}
		}
		r.mu.Unlock()

		if len(orphans) == 0 {
			return nil
		}

		for _, n := range orphans {
			if child := n.next.peek(); child != nil {
				child.release()
			}
			if err := n.table.Delete(); err != nil {
				return fmt.Errorf("lsm: prune delete table %s: %w", n.id, err)
			}
		}
	}
}
