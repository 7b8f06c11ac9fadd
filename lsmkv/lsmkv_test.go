package lsmkv

import (
	"math/rand"
	"testing"

	"github.com/mileswatson/locker-db/key"
)

func init() {
	rand.Seed(1)
}

func TestTreePutGetDeleteWithStringCodec(t *testing.T) {
	dir := t.TempDir()
	tr, err := Open(dir, StringCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	k := key.New()
	if err := tr.Put(k, "hello"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, ok, err := tr.Get(k)
	if err != nil || !ok || v != "hello" {
		t.Fatalf("Get = %q ok=%v err=%v, want hello", v, ok, err)
	}

	if err := tr.Delete(k); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := tr.Get(k); err != nil || ok {
		t.Fatalf("Get after Delete: ok=%v err=%v", ok, err)
	}
}

func TestTreeGetMissingKey(t *testing.T) {
	dir := t.TempDir()
	tr, err := Open(dir, BytesCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	if _, ok, err := tr.Get(key.New()); err != nil || ok {
		t.Fatalf("Get on missing key: ok=%v err=%v", ok, err)
	}
}
