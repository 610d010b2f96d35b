// Package kv adapts versioned key-value stores,
// such as object stores and embedded key-value databases,
// to the seguid.Store interface.
//
// A kv.Store offers only compare-and-swap writes.
// Map layers atomic merges on top of that
// with an optimistic read-merge-write loop.
package kv

import (
	"context"
	"errors"
)

// Version identifies one state of the value at a key.
// Its contents are meaningful only to the Store that produced it.
type Version string

// NoVersion is the version of a key that has no value.
// Writing with NoVersion as the previous version
// succeeds only if the key does not exist.
const NoVersion Version = ""

// Store is a key-value store with conditional writes.
type Store interface {
	// Get gets the value at a key and its current version.
	// It returns seguid.ErrNotFound if there is none.
	Get(ctx context.Context, key string) ([]byte, Version, error)

	// Put stores a value at a key,
	// provided the key's current version is prev.
	// Otherwise it returns ErrConflict and stores nothing.
	Put(ctx context.Context, key string, val []byte, prev Version) error

	// List calls a function for each key having the given prefix
	// that sorts after the given key (which is a complete key, not a suffix), in lexicographic order.
	// If the callback function returns an error,
	// List exits with that error.
	List(ctx context.Context, prefix, after string, f func(string) error) error
}

var (
	// ErrConflict is the error returned by Put
	// when the key's version is not the expected one.
	ErrConflict = errors.New("version conflict")

	// ErrContention is the error returned by Map.Merge
	// when it exhausts its attempts without a successful write.
	ErrContention = errors.New("too much contention")
)
