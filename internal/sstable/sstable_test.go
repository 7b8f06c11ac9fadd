package sstable

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

func init() {
	rand.Seed(1)
}

func present(s string) record.Value {
	return record.Value{Kind: record.Present, Data: []byte(s)}
}

func tombstone() record.Value {
	return record.Value{Kind: record.Tombstone}
}

func TestWriteTableAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	entries := map[key.Key]record.Value{
		key.New(): present("alpha"),
		key.New(): present(""),
		key.New(): tombstone(),
		key.New(): present("a longer value than the others"),
	}

	b := NewBuilder("table-a", filepath.Join(dir, "unused.wal"), entries)
	tbl, err := b.Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tbl.Len() != int64(len(entries)) {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), len(entries))
	}

	r, err := tbl.Reader()
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	defer r.Close()

	for k, want := range entries {
		got, ok, err := r.Read(k)
		if err != nil {
			t.Fatalf("Read(%s): %v", k, err)
		}
		if !ok {
			t.Fatalf("Read(%s): not found", k)
		}
		if got.Kind != want.Kind || string(got.Data) != string(want.Data) {
			t.Fatalf("Read(%s) = %+v, want %+v", k, got, want)
		}
	}

	missing := key.New()
	if _, ok, err := r.Read(missing); err != nil || ok {
		t.Fatalf("Read(missing) = ok=%v err=%v, want not found", ok, err)
	}
}

func TestReadIndexIsSortedAscending(t *testing.T) {
	dir := t.TempDir()

	entries := make(map[key.Key]record.Value)
	for i := 0; i < 50; i++ {
		entries[key.New()] = present("v")
	}

	b := NewBuilder("table-b", filepath.Join(dir, "unused.wal"), entries)
	tbl, err := b.Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r, err := tbl.Reader()
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	defer r.Close()

	var prev key.Key
	for i := int64(0); i < r.Len(); i++ {
		k, _, err := r.ReadIndex(i)
		if err != nil {
			t.Fatalf("ReadIndex(%d): %v", i, err)
		}
		if i > 0 && k.Compare(prev) <= 0 {
			t.Fatalf("ReadIndex not strictly ascending at %d", i)
		}
		prev = k
	}
}

func TestMergeYoungWinsOnTie(t *testing.T) {
	dir := t.TempDir()

	shared := key.New()
	onlyOld := key.New()
	onlyYoung := key.New()

	young, err := NewBuilder("young", filepath.Join(dir, "y.wal"), map[key.Key]record.Value{
		shared:    present("young-value"),
		onlyYoung: present("young-only"),
	}).Build(dir)
	if err != nil {
		t.Fatalf("build young: %v", err)
	}

	old, err := NewBuilder("old", filepath.Join(dir, "o.wal"), map[key.Key]record.Value{
		shared:  present("old-value"),
		onlyOld: tombstone(),
	}).Build(dir)
	if err != nil {
		t.Fatalf("build old: %v", err)
	}

	merged, err := Merge(young, old, dir)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Len() != 3 {
		t.Fatalf("merged.Len() = %d, want 3", merged.Len())
	}

	r, err := merged.Reader()
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	defer r.Close()

	v, ok, err := r.Read(shared)
	if err != nil || !ok {
		t.Fatalf("Read(shared): ok=%v err=%v", ok, err)
	}
	if string(v.Data) != "young-value" {
		t.Fatalf("Read(shared) = %q, want young-value (young must win ties)", v.Data)
	}

	v, ok, err = r.Read(onlyOld)
	if err != nil || !ok {
		t.Fatalf("Read(onlyOld): ok=%v err=%v", ok, err)
	}
	if v.Kind != record.Tombstone {
		t.Fatalf("Read(onlyOld).Kind = %v, want Tombstone (merge must preserve tombstones)", v.Kind)
	}

	v, ok, err = r.Read(onlyYoung)
	if err != nil || !ok || string(v.Data) != "young-only" {
		t.Fatalf("Read(onlyYoung) = %+v ok=%v err=%v", v, ok, err)
	}
}

func TestMergeIsIdempotentUnderRepeatedApplication(t *testing.T) {
	dir := t.TempDir()

	entries := make(map[key.Key]record.Value)
	for i := 0; i < 20; i++ {
		entries[key.New()] = present("v")
	}
	young, err := NewBuilder("y2", filepath.Join(dir, "y2.wal"), entries).Build(dir)
	if err != nil {
		t.Fatalf("build young: %v", err)
	}
	old, err := NewBuilder("o2", filepath.Join(dir, "o2.wal"), map[key.Key]record.Value{
		key.New(): present("old-only"),
	}).Build(dir)
	if err != nil {
		t.Fatalf("build old: %v", err)
	}

	first, err := Merge(young, old, dir)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	empty, err := NewBuilder("empty", filepath.Join(dir, "e.wal"), map[key.Key]record.Value{}).Build(dir)
	if err != nil {
		t.Fatalf("build empty: %v", err)
	}

	second, err := Merge(empty, first, dir)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if second.Len() != first.Len() {
		t.Fatalf("merging with empty young changed length: %d != %d", second.Len(), first.Len())
	}
}
