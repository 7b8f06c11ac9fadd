package memtable

import (
	"math/rand"
	"testing"

	"github.com/mileswatson/locker-db/key"
	"github.com/mileswatson/locker-db/record"
)

// Deterministic randomness so tests are repeatable.
func init() {
	rand.Seed(1)
}

func k(b byte) key.Key {
	var kk key.Key
	kk[len(kk)-1] = b
	return kk
}

func present(s string) record.Value {
	return record.Value{Kind: record.Present, Data: []byte(s)}
}

func TestEmptySkipList(t *testing.T) {
	sl := NewSkipList()
	if sl.Len() != 0 {
		t.Fatalf("expected len 0, got %d", sl.Len())
	}
	if _, ok := sl.Get(k(1)); ok {
		t.Fatalf("expected not found in empty skiplist")
	}
}

func TestPutAndGetSingle(t *testing.T) {
	sl := NewSkipList()
	sl.Put(k(10), present("ten"))

	v, ok := sl.Get(k(10))
	if !ok || string(v.Data) != "ten" {
		t.Fatalf("expected (ten,true), got (%v,%v)", v, ok)
	}
}

func TestUpdateExistingKey(t *testing.T) {
	sl := NewSkipList()
	sl.Put(k(1), present("one"))
	sl.Put(k(1), present("uno"))

	v, ok := sl.Get(k(1))
	if !ok || string(v.Data) != "uno" {
		t.Fatalf("update failed, got (%v,%v)", v, ok)
	}
	if sl.Len() != 1 {
		t.Fatalf("expected len 1, got %d", sl.Len())
	}
}

func TestSequentialInsertAndIterateSorted(t *testing.T) {
	sl := NewSkipList()
	for i := 1; i <= 200; i++ {
		sl.Put(k(byte(i%256)), present(string(rune(i))))
	}
	// 200 distinct single-byte keys fit in [1,200]; len must match.
	if sl.Len() != 200 {
		t.Fatalf("expected len 200, got %d", sl.Len())
	}

	var prev key.Key
	first := true
	count := 0
	for rec := range sl.Iterator() {
		if !first && prev.Compare(rec.Key) >= 0 {
			t.Fatalf("iterator not strictly ascending at entry %d", count)
		}
		prev = rec.Key
		first = false
		count++
	}
	if count != 200 {
		t.Fatalf("iterator yielded %d records, want 200", count)
	}
}

func TestDelete(t *testing.T) {
	sl := NewSkipList()
	sl.Put(k(1), present("one"))
	sl.Put(k(2), present("two"))

	sl.Delete(k(1))
	if _, ok := sl.Get(k(1)); ok {
		t.Fatalf("expected key 1 deleted")
	}
	if sl.Len() != 1 {
		t.Fatalf("expected len 1 after delete, got %d", sl.Len())
	}
	if v, ok := sl.Get(k(2)); !ok || string(v.Data) != "two" {
		t.Fatalf("expected key 2 untouched")
	}
}
