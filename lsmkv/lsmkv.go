// Package lsmkv is the public entry point: a generic, durable,
// embedded key-value store backed by internal/lsm's level list. Keys are
// opaque 16-byte identifiers (key.Key); values are whatever type V a
// Codec can marshal to and from bytes.
package lsmkv

import (
	"fmt"

	"github.com/mileswatson/locker-db/internal/lsm"
	"github.com/mileswatson/locker-db/key"
)

// Codec converts a value type to and from its on-disk byte representation.
// Decode reports false for bytes it cannot interpret; Tree.Get then returns
// an error for that key rather than crashing the process.
type Codec[V any] interface {
	Encode(v V) []byte
	Decode(b []byte) (V, bool)
}

// Option configures a Tree at Open time; re-exported from internal/lsm so
// callers never need to import that package directly.
type Option = lsm.Option

var (
	WithRotateThreshold = lsm.WithRotateThreshold
	WithMergeRatio      = lsm.WithMergeRatio
	WithCompactionIdle  = lsm.WithCompactionIdle
)

// Tree is a generically-typed, open key-value store.
type Tree[V any] struct {
	inner *lsm.Tree
	codec Codec[V]
}

// Open opens (or creates) a tree rooted at dir, typed to store values
// marshaled by codec.
func Open[V any](dir string, codec Codec[V], opts ...Option) (*Tree[V], error) {
	inner, err := lsm.Open(dir, opts...)
	if err != nil {
		return nil, err
	}
	return &Tree[V]{inner: inner, codec: codec}, nil
}

// Close stops the tree's background compactor and releases its resources.
func (t *Tree[V]) Close() error {
	return t.inner.Close()
}

// Get looks up k, reporting false if k is absent or was deleted.
func (t *Tree[V]) Get(k key.Key) (V, bool, error) {
	var zero V
	b, ok, err := t.inner.Get(k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, ok := t.codec.Decode(b)
	if !ok {
		return zero, false, fmt.Errorf("lsmkv: stored value for %s failed to decode", k)
	}
	return v, true, nil
}

// Put durably associates k with v before returning.
func (t *Tree[V]) Put(k key.Key, v V) error {
	return t.inner.Put(k, t.codec.Encode(v))
}

// Delete durably removes k, if present.
func (t *Tree[V]) Delete(k key.Key) error {
	return t.inner.Delete(k)
}
