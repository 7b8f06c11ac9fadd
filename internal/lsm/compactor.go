package lsm

import (
	"fmt"
	"os"
	"time"

	"github.com/mileswatson/locker-db/internal/sstable"
	"github.com/mileswatson/locker-db/internal/writebuffer"
)

// runCompactor is the background goroutine driving rotation, flushing, and
// merging. It owns all structural mutation of the tree; everything else
// only reads the chain via head.acquire()/Next()/release().
func (t *Tree) runCompactor() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.compactionIdle)
	defer ticker.Stop()

	for {
		select {
		case <-t.exit:
			return
		case <-ticker.C:
		}

		if err := t.compactionPass(); err != nil {
			fmt.Fprintf(os.Stderr, "lsm: compaction pass failed: %v\n", err)
		}
	}
}

// compactionPass runs one iteration of background maintenance: maybe
// rotate the active buffer, flush every pending builder to a new head
// node, merge adjacent table pairs that have grown unbalanced, then prune
// any table the merge pass orphaned. The manifest is resaved before any
// input file is deleted at each step, so a crash mid-pass never leaves the
// manifest pointing at a file that no longer exists.
func (t *Tree) compactionPass() error {
	t.rotateMu.RLock()
	n := t.buf.Len()
	t.rotateMu.RUnlock()
	if n >= t.cfg.rotateThreshold {
		if err := t.rotate(); err != nil {
			return fmt.Errorf("lsm: rotate: %w", err)
		}
	}

	for {
		t.mu.Lock()
		empty := len(t.builders) == 0
		t.mu.Unlock()
		if empty {
			break
		}
		if err := t.flushOldestBuilder(); err != nil {
			return fmt.Errorf("lsm: flush: %w", err)
		}
	}

	if err := t.compactAdjacentPairs(); err != nil {
		return fmt.Errorf("lsm: merge: %w", err)
	}

	return t.registry.Prune()
}

// rotate seals the active buffer into a builder and installs a fresh
// buffer in its place. Write holds rotateMu.RLock for its whole duration,
// so once rotate takes the write lock it knows no writer still references
// the outgoing buffer.
func (t *Tree) rotate() error {
	t.rotateMu.Lock()
	old := t.buf
	fresh, err := writebuffer.Create(t.walsDir)
	if err != nil {
		t.rotateMu.Unlock()
		return err
	}
	t.buf = fresh
	t.rotateMu.Unlock()

	builder, err := old.Seal()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.builders = append(t.builders, builder)
	t.mu.Unlock()

	return t.persistState()
}

// flushOldestBuilder builds the oldest pending builder into a table,
// prepends it as the new head node, persists the manifest, then deletes
// the builder's now-redundant WAL file and drops it from the pending list.
func (t *Tree) flushOldestBuilder() error {
	t.mu.Lock()
	if len(t.builders) == 0 {
		t.mu.Unlock()
		return nil
	}
	b := t.builders[0]
	t.mu.Unlock()

	tbl, err := b.Build(t.tablesDir)
	if err != nil {
		return err
	}

	cur := t.head.acquire()
	n := newNode(tbl, cur, t.registry)
	if cur != nil {
		cur.release()
	}
	t.head.store(n)

	if err := t.persistState(); err != nil {
		return err
	}

	if err := b.DeleteWAL(); err != nil {
		return err
	}

	t.mu.Lock()
	t.builders = t.builders[1:]
	t.mu.Unlock()

	return t.persistState()
}

// shouldMerge decides whether two adjacent tables are unbalanced enough to
// merge: they are left unmerged when
// floor(ratioNum*first.Len()/ratioDen) <= second.Len().
func (t *Tree) shouldMerge(first, second *Node) bool {
	threshold := (t.cfg.mergeRatioNum * first.table.Len()) / t.cfg.mergeRatioDen
	skip := threshold <= second.table.Len()
	return !skip
}

// compactAdjacentPairs walks the chain once, merging every adjacent pair
// that fails the balance test into a single new node under a fresh id and
// resaving the manifest after each merge. Running single-threaded (this
// goroutine is the only structural mutator), it is safe to keep a raw
// pointer to a node's own next slot as "the predecessor slot" across
// iterations without re-deriving it from head each time.
func (t *Tree) compactAdjacentPairs() error {
	predSlot := &t.head
	cur := predSlot.acquire()

	for cur != nil {
		next := cur.Next()
		if next == nil {
			cur.release()
			return nil
		}

		if !t.shouldMerge(cur, next) {
			next.release()
			cur.release()
			predSlot = &cur.next
			cur = predSlot.acquire()
			continue
		}

		merged, err := sstable.Merge(cur.table, next.table, t.tablesDir)
		if err != nil {
			next.release()
			cur.release()
			return err
		}

		afterNext := next.Next()
		n := newNode(merged, afterNext, t.registry)
		if afterNext != nil {
			afterNext.release()
		}

		predSlot.store(n)
		next.release()
		cur.release()

		if err := t.persistState(); err != nil {
			return err
		}

		cur = predSlot.acquire()
	}

	return nil
}
