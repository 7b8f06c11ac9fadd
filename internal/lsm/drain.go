package lsm

import (
	"fmt"
	"os"
	"path/filepath"
)

// drainUnreferenced removes every file under walsDir, tablesDir, and dir
// itself that the loaded manifest does not name. A crash can leave behind
// a WAL whose builder was never recorded, a table written by a merge that
// crashed before the manifest update, or a stray temp manifest file from
// an interrupted rename; all of these are swept away on load rather than
// silently accumulating or being mistaken for live data.
func drainUnreferenced(dir, walsDir, tablesDir string, s manifestState) error {
	wantWALs := map[string]bool{s.Buffer + ".wal": true}
	for _, id := range s.Builders {
		wantWALs[id+".wal"] = true
	}
	if err := drainDir(walsDir, wantWALs); err != nil {
		return err
	}

	wantTables := make(map[string]bool, len(s.Tables)*2)
	for _, id := range s.Tables {
		wantTables[id+".offsets"] = true
		wantTables[id+".strings"] = true
	}
	if err := drainDir(tablesDir, wantTables); err != nil {
		return err
	}

	return drainStrayRootFiles(dir)
}

func drainDir(dir string, keep map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("lsm: list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || keep[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("lsm: remove stray file %s: %w", e.Name(), err)
		}
	}
	return nil
}

// drainStrayRootFiles removes every entry directly under dir except the
// canonical manifest file and the wals/tables subdirectories themselves.
// This catches a "state-<id>" temp file left behind by a saveState call
// that crashed before (or during) its rename into place, as well as any
// other unrecognized file a prior crash or manual tampering left at the
// tree's root.
func drainStrayRootFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("lsm: list %s: %w", dir, err)
	}
	for _, e := range entries {
		switch e.Name() {
		case manifestName, "wals", "tables":
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("lsm: remove stray root file %s: %w", e.Name(), err)
		}
	}
	return nil
}
