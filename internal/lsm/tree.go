package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mileswatson/locker-db/internal/sstable"
	"github.com/mileswatson/locker-db/internal/writebuffer"
	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

// Config holds the tunables the background compactor reads: when to
// rotate the active buffer into a sealed builder, when two adjacent
// tables are unbalanced enough to merge, and how often to look for work.
type Config struct {
	rotateThreshold int
	mergeRatioNum   int64
	mergeRatioDen   int64
	compactionIdle  time.Duration
}

// Option configures a Tree at Open time.
type Option func(*Config)

// WithRotateThreshold sets the number of distinct keys the active buffer
// may hold before the compactor seals it into a builder. Counted in
// entries rather than bytes, matching the write buffer's own map-based
// sizing.
func WithRotateThreshold(n int) Option {
	return func(c *Config) { c.rotateThreshold = n }
}

// WithMergeRatio overrides the skip-merge test's ratio, expressed as
// num/den in place of the default 3/4. Two adjacent tables are left
// unmerged when floor(num*first.Len()/den) <= second.Len().
func WithMergeRatio(num, den int64) Option {
	return func(c *Config) { c.mergeRatioNum, c.mergeRatioDen = num, den }
}

// WithCompactionIdle sets the interval between compactor passes. The
// compactor waits this long before every pass, whether or not the previous
// pass found rotation, flush, or merge work; it does not start the next
// pass early after a busy one.
func WithCompactionIdle(d time.Duration) Option {
	return func(c *Config) { c.compactionIdle = d }
}

func defaultConfig() Config {
	return Config{
		rotateThreshold: 512,
		mergeRatioNum:   3,
		mergeRatioDen:   4,
		compactionIdle:  50 * time.Millisecond,
	}
}

// Tree is one open, on-disk key-value store: a write buffer in front of
// zero or more sealed builders awaiting their first flush, in front of a
// chain of immutable, merged tables reachable from head. A background
// goroutine owns all structural mutation; readers and writers only ever
// touch the buffer, the builder list under mu, or the chain via acquire/
// release on head.
type Tree struct {
	dir       string
	walsDir   string
	tablesDir string
	cfg       Config

	rotateMu sync.RWMutex // serializes Write against the compactor sealing the active buffer.
	buf      *writebuffer.Buffer

	mu       sync.Mutex // guards builders.
	builders []*sstable.Builder

	head     slot
	registry *Registry

	exit chan struct{}
	wg   sync.WaitGroup
}

// Open opens (or creates, if dir has no manifest yet) a tree rooted at
// dir, starts its background compactor, and returns it.
func Open(dir string, opts ...Option) (*Tree, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	walsDir := filepath.Join(dir, "wals")
	tablesDir := filepath.Join(dir, "tables")
	if err := os.MkdirAll(walsDir, 0o755); err != nil {
		return nil, fmt.Errorf("lsm: create wals dir: %w", err)
	}
	if err := os.MkdirAll(tablesDir, 0o755); err != nil {
		return nil, fmt.Errorf("lsm: create tables dir: %w", err)
	}

	state, existed, err := loadState(dir)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		dir:       dir,
		walsDir:   walsDir,
		tablesDir: tablesDir,
		cfg:       cfg,
		registry:  NewRegistry(),
		exit:      make(chan struct{}),
	}

	if !existed {
		buf, err := writebuffer.Create(walsDir)
		if err != nil {
			return nil, err
		}
		t.buf = buf
		if err := t.persistState(); err != nil {
			return nil, err
		}
	} else {
		if err := drainUnreferenced(dir, walsDir, tablesDir, state); err != nil {
			return nil, err
		}

		buf, err := writebuffer.Open(walsDir, state.Buffer)
		if err != nil {
			return nil, err
		}
		t.buf = buf

		for _, id := range state.Builders {
			pending, err := writebuffer.Open(walsDir, id)
			if err != nil {
				return nil, err
			}
			builder, err := pending.Seal()
			if err != nil {
				return nil, err
			}
			t.builders = append(t.builders, builder)
		}

		var next *Node
		for i := len(state.Tables) - 1; i >= 0; i-- {
			tbl, err := sstable.Open(tablesDir, state.Tables[i])
			if err != nil {
				return nil, err
			}
			n := newNode(tbl, next, t.registry)
			if next != nil {
				// next is linked through n's own edge, not stored into a
				// slot, so its earmarked reference is dropped here.
				next.release()
			}
			next = n
		}
		t.head.store(next)
	}

	t.wg.Add(1)
	go t.runCompactor()
	return t, nil
}

// Close stops the background compactor and closes the active buffer's WAL
// handle. The buffer's data remains fully recoverable on the next Open
// under the same id.
func (t *Tree) Close() error {
	close(t.exit)
	t.wg.Wait()

	t.rotateMu.RLock()
	buf := t.buf
	t.rotateMu.RUnlock()
	return buf.Close()
}

// Get performs a point lookup across the buffer, pending builders (newest
// sealed first), and the table chain (head to tail), returning not-found
// for both an absent key and a tombstone.
func (t *Tree) Get(k key.Key) ([]byte, bool, error) {
	v, ok, err := t.get(k)
	if err != nil || !ok || v.Kind == record.Tombstone {
		return nil, false, err
	}
	return v.Data, true, nil
}

// Put durably writes k=data before returning; the write is fsynced to the
// active buffer's WAL before this call returns.
func (t *Tree) Put(k key.Key, data []byte) error {
	return t.write(record.Entry{Key: k, Value: record.Value{Kind: record.Present, Data: data}})
}

// Delete durably writes a tombstone for k before returning.
func (t *Tree) Delete(k key.Key) error {
	return t.write(record.Entry{Key: k, Value: record.Value{Kind: record.Tombstone}})
}

func (t *Tree) write(e record.Entry) error {
	t.rotateMu.RLock()
	defer t.rotateMu.RUnlock()
	return t.buf.Write(e)
}

func (t *Tree) get(k key.Key) (record.Value, bool, error) {
	t.rotateMu.RLock()
	if v, ok := t.buf.Read(k); ok {
		t.rotateMu.RUnlock()
		return v, true, nil
	}
	t.rotateMu.RUnlock()

	t.mu.Lock()
	builders := append([]*sstable.Builder(nil), t.builders...)
	t.mu.Unlock()

	for i := len(builders) - 1; i >= 0; i-- {
		if v, ok := builders[i].Read(k); ok {
			return v, true, nil
		}
	}

	n := t.head.acquire()
	for n != nil {
		r, err := n.Table().Reader()
		if err != nil {
			n.release()
			return record.Value{}, false, err
		}
		v, found, err := r.Read(k)
		closeErr := r.Close()
		if err != nil {
			n.release()
			return record.Value{}, false, err
		}
		if closeErr != nil {
			n.release()
			return record.Value{}, false, closeErr
		}
		if found {
			n.release()
			return v, true, nil
		}
		next := n.Next()
		n.release()
		n = next
	}

	return record.Value{}, false, nil
}

// collectTableIDs walks the chain head to tail, returning the ids in that
// order, for persisting into the manifest.
func (t *Tree) collectTableIDs() []string {
	var ids []string
	n := t.head.acquire()
	for n != nil {
		ids = append(ids, n.id)
		next := n.Next()
		n.release()
		n = next
	}
	return ids
}

func (t *Tree) persistState() error {
	t.rotateMu.RLock()
	bufID := t.buf.ID()
	t.rotateMu.RUnlock()

	t.mu.Lock()
	builderIDs := make([]string, len(t.builders))
	for i, b := range t.builders {
		builderIDs[i] = b.ID()
	}
	t.mu.Unlock()

	return saveState(t.dir, manifestState{
		Buffer:   bufID,
		Builders: builderIDs,
		Tables:   t.collectTableIDs(),
	})
}
