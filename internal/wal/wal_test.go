package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

func tempWALPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.wal")
}

func entry(k byte, present bool, data string) record.Entry {
	var key_ key.Key
	key_[0] = k
	if present {
		return record.Entry{Key: key_, Value: record.Value{Kind: record.Present, Data: []byte(data)}}
	}
	return record.Entry{Key: key_, Value: record.Value{Kind: record.Tombstone}}
}

func TestWALRoundTrip(t *testing.T) {
	path := tempWALPath(t)

	w, recovered, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(recovered) != 0 {
		t.Fatalf("expected no recovered entries on fresh file, got %d", len(recovered))
	}

	want := []record.Entry{
		entry(1, true, "a"),
		entry(2, true, "b"),
		entry(1, false, ""),
		entry(3, true, ""),
	}
	for _, e := range want {
		if err := w.Write(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, recovered, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(recovered) != len(want) {
		t.Fatalf("recovered %d entries, want %d", len(recovered), len(want))
	}
	for i, e := range recovered {
		if e.Key != want[i].Key || e.Value.Kind != want[i].Value.Kind || string(e.Value.Data) != string(want[i].Value.Data) {
			t.Fatalf("entry %d mismatch: got %+v, want %+v", i, e, want[i])
		}
	}
}

func TestWALTruncatesTornTail(t *testing.T) {
	path := tempWALPath(t)

	w, _, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	good := []record.Entry{entry(1, true, "a"), entry(2, true, "bb")}
	for _, e := range good {
		if err := w.Write(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	goodSize, err := w.file.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	// Simulate a torn write: append a third record's bytes then chop it.
	if err := w.Write(entry(3, true, "ccc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	full, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(path, full[:len(full)-3], 0o644); err != nil {
		t.Fatalf("truncate write: %v", err)
	}

	w2, recovered, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()

	if len(recovered) != len(good) {
		t.Fatalf("recovered %d entries, want %d (torn tail should be discarded)", len(recovered), len(good))
	}

	size, err := w2.file.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != goodSize {
		t.Fatalf("file not truncated to valid prefix: got %d, want %d", size, goodSize)
	}

	// Appending after a torn-tail recovery must still replay cleanly.
	if err := w2.Write(entry(4, true, "d")); err != nil {
		t.Fatalf("write after recovery: %v", err)
	}
	if _, err := w2.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, recovered, err = Open(path)
	if err != nil {
		t.Fatalf("final reopen: %v", err)
	}
	if len(recovered) != len(good)+1 {
		t.Fatalf("recovered %d entries, want %d", len(recovered), len(good)+1)
	}
}

func TestWALClear(t *testing.T) {
	path := tempWALPath(t)
	w, _, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := w.Write(entry(1, true, "a")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, recovered, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(recovered) != 0 {
		t.Fatalf("expected empty WAL after clear, got %d entries", len(recovered))
	}
}
