// Package transform implements a key-value store that transforms values into and out of a nested store.
package transform

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/seguid/store/kv"
)

var _ kv.Store = &Store{}

// Store is a kv.Store wrapping a nested kv.Store and a Transformer.
// Values are transformed according to the Transformer on their way in and out of the nested store.
// Keys and versions pass through unchanged.
type Store struct {
	s kv.Store
	x Transformer
}

// Transformer tells how to transform a value on its way into and out of a Store.
// Out should be the inverse of In.
type Transformer interface {
	// In transforms a value on its way into the store.
	In(context.Context, []byte) ([]byte, error)

	// Out transforms a value on its way out of the store.
	Out(context.Context, []byte) ([]byte, error)
}

// New produces a new Store.
func New(s kv.Store, x Transformer) *Store {
	return &Store{s: s, x: x}
}

// Get implements kv.Store.Get.
func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	val, ver, err := s.s.Get(ctx, key)
	if err != nil {
		return nil, kv.NoVersion, err
	}
	val, err = s.x.Out(ctx, val)
	if err != nil {
		return nil, kv.NoVersion, errors.Wrapf(err, "untransforming value of %s", key)
	}
	return val, ver, nil
}

// Put implements kv.Store.Put.
func (s *Store) Put(ctx context.Context, key string, val []byte, prev kv.Version) error {
	tval, err := s.x.In(ctx, val)
	if err != nil {
		return errors.Wrapf(err, "transforming value of %s", key)
	}
	return s.s.Put(ctx, key, tval, prev)
}

// List implements kv.Store.List.
func (s *Store) List(ctx context.Context, prefix, after string, f func(string) error) error {
	return s.s.List(ctx, prefix, after, f)
}

// FromConfig wraps s according to the optional "compress" member of conf,
// which may be "flate" or "lzw".
// Without one, s is returned unwrapped.
func FromConfig(s kv.Store, conf map[string]interface{}) (kv.Store, error) {
	name, ok := conf["compress"].(string)
	if !ok || name == "" {
		return s, nil
	}
	x, ok := Transformers[name]
	if !ok {
		return nil, errors.Errorf("unknown compression %q", name)
	}
	return New(s, x), nil
}
