package lsm

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mileswatson/locker-db/internal/fileid"
	"github.com/mileswatson/locker-db/internal/vfs"
)

// manifestState is the durable record needed to reconstruct a tree on
// reopen: the active write buffer's id, any sealed-but-not-yet-flushed
// builders (oldest first), and the chain of table ids from head (youngest)
// to tail (oldest). Encoded with encoding/gob.
type manifestState struct {
	Buffer   string
	Builders []string
	Tables   []string
}

const manifestName = "state"

func manifestPath(dir string) string {
	return filepath.Join(dir, manifestName)
}

// saveState writes state to a fresh temp file, fsyncs it, then renames it
// over the canonical manifest path and fsyncs the containing directory, so
// a crash mid-write never leaves a partially-written manifest in place.
func saveState(dir string, s manifestState) error {
	buf, err := encodeState(s)
	if err != nil {
		return fmt.Errorf("lsm: encode manifest: %w", err)
	}

	tmpPath := filepath.Join(dir, manifestName+"-"+fileid.New())
	if _, err := vfs.CreateImmutable(tmpPath, buf); err != nil {
		return fmt.Errorf("lsm: write manifest temp file: %w", err)
	}
	if err := os.Rename(tmpPath, manifestPath(dir)); err != nil {
		return fmt.Errorf("lsm: install manifest: %w", err)
	}

	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("lsm: open dir to sync after manifest install: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("lsm: sync dir after manifest install: %w", err)
	}
	return nil
}

// loadState reads the manifest, reporting whether one existed at all (a
// missing manifest means a brand-new, empty tree).
func loadState(dir string) (manifestState, bool, error) {
	b, err := os.ReadFile(manifestPath(dir))
	if os.IsNotExist(err) {
		return manifestState{}, false, nil
	}
	if err != nil {
		return manifestState{}, false, fmt.Errorf("lsm: read manifest: %w", err)
	}
	s, err := decodeState(b)
	if err != nil {
		return manifestState{}, false, fmt.Errorf("lsm: decode manifest: %w", err)
	}
	return s, true, nil
}

func encodeState(s manifestState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeState(b []byte) (manifestState, error) {
	var s manifestState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return manifestState{}, err
	}
	return s, nil
}
