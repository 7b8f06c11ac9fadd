package lsm

import (
	"os"
	"path/filepath"
	"testing"
)

// TestOpenDrainsStrayFiles plants a stray root-level file (simulating a
// crash mid-saveState, or manual tampering) and an orphaned table file pair
// (simulating a table written by a merge that crashed before the manifest
// update) in a fresh tree directory, then confirms Open sweeps both away.
func TestOpenDrainsStrayFiles(t *testing.T) {
	dir := t.TempDir()

	tr, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tr.Close()

	strayRoot := filepath.Join(dir, "state-deadbeef")
	if err := os.WriteFile(strayRoot, []byte("leftover"), 0o644); err != nil {
		t.Fatalf("write stray root file: %v", err)
	}

	tablesDir := filepath.Join(dir, "tables")
	orphanOffsets := filepath.Join(tablesDir, "orphan.offsets")
	orphanStrings := filepath.Join(tablesDir, "orphan.strings")
	if err := os.WriteFile(orphanOffsets, nil, 0o644); err != nil {
		t.Fatalf("write orphan offsets: %v", err)
	}
	if err := os.WriteFile(orphanStrings, nil, 0o644); err != nil {
		t.Fatalf("write orphan strings: %v", err)
	}

	tr2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tr2.Close()

	if _, err := os.Stat(strayRoot); !os.IsNotExist(err) {
		t.Fatalf("stray root file survived Open: err=%v", err)
	}
	if _, err := os.Stat(orphanOffsets); !os.IsNotExist(err) {
		t.Fatalf("orphan offsets file survived Open: err=%v", err)
	}
	if _, err := os.Stat(orphanStrings); !os.IsNotExist(err) {
		t.Fatalf("orphan strings file survived Open: err=%v", err)
	}

	// The live manifest and its directories must remain untouched.
	if _, err := os.Stat(filepath.Join(dir, manifestName)); err != nil {
		t.Fatalf("manifest missing after drain: %v", err)
	}
	if _, err := os.Stat(tablesDir); err != nil {
		t.Fatalf("tables dir missing after drain: %v", err)
	}
}
