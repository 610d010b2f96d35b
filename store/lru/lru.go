// Package lru implements a seguid store that acts as a least-recently-used cache for a nested store.
package lru

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = &Store{}

// Store implements a memory-based least-recently-used cache for a seguid store.
// It caches records fetched by Get.
// Merges pass through to the underlying store
// and evict the affected record.
type Store struct {
	c *lru.Cache // Seguid->Record
	s seguid.Store

	mu  sync.Mutex
	gen uint64 // bumped by every changing Merge
}

// New produces a new Store backed by `s` and caching up to `size` records.
func New(s seguid.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

// Get gets the record for fp.
func (s *Store) Get(ctx context.Context, fp seguid.Seguid) (seguid.Record, error) {
	if got, ok := s.c.Get(fp); ok {
		return copyRecord(got.(seguid.Record)), nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	rec, err := s.s.Get(ctx, fp)
	if err != nil {
		return seguid.Record{}, err
	}

	// A Merge that landed while the nested Get ran may have been missed by it.
	s.mu.Lock()
	if s.gen == gen {
		s.c.Add(fp, copyRecord(rec))
	}
	s.mu.Unlock()

	return rec, nil
}

// ByID passes through to the nested store.
func (s *Store) ByID(ctx context.Context, id string) (seguid.Record, error) {
	return s.s.ByID(ctx, id)
}

// Merge adds ids to the record for fp in the nested store.
func (s *Store) Merge(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	outcome, err := s.s.Merge(ctx, fp, ids)
	if err != nil {
		return outcome, err
	}
	if outcome != seguid.Unchanged {
		s.mu.Lock()
		s.gen++
		s.c.Remove(fp)
		s.mu.Unlock()
	}
	return outcome, nil
}

// ListSeguids produces all Seguids in the store, in lexicographic order.
func (s *Store) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	return s.s.ListSeguids(ctx, start, f)
}

func copyRecord(rec seguid.Record) seguid.Record {
	return seguid.Record{Seguid: rec.Seguid, IDs: append([]string{}, rec.IDs...)}
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		size, ok := store.IntParam(conf, "size")
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nestedStore, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nestedStore, size)
	})
}
