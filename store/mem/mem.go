// Package mem implements an in-memory seguid store.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = &Store{}

// Store is a memory-based implementation of a seguid store.
type Store struct {
	mu      sync.Mutex
	records map[seguid.Seguid][]string

	// Each identifier maps to the first Seguid that recorded it.
	byID map[string]seguid.Seguid
}

// New produces a new Store.
func New() *Store {
	return &Store{
		records: make(map[seguid.Seguid][]string),
		byID:    make(map[string]seguid.Seguid),
	}
}

// Get gets the record for s.
func (s *Store) Get(_ context.Context, fp seguid.Seguid) (seguid.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(fp)
}

// Caller must obtain a lock.
func (s *Store) get(fp seguid.Seguid) (seguid.Record, error) {
	ids, ok := s.records[fp]
	if !ok {
		return seguid.Record{}, seguid.ErrNotFound
	}
	return seguid.Record{Seguid: fp, IDs: append([]string{}, ids...)}, nil
}

// ByID gets the record that first recorded id.
func (s *Store) ByID(_ context.Context, id string) (seguid.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp, ok := s.byID[id]
	if !ok {
		return seguid.Record{}, seguid.ErrNotFound
	}
	return s.get(fp)
}

// Merge adds ids to the record for fp.
func (s *Store) Merge(_ context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	have, exists := s.records[fp]
	merged, added := seguid.Union(have, ids)
	s.records[fp] = merged

	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			s.byID[id] = fp
		}
	}

	switch {
	case !exists:
		return seguid.Created, nil
	case added > 0:
		return seguid.Updated, nil
	}
	return seguid.Unchanged, nil
}

// ListSeguids produces all Seguids in the store, in lexicographic order.
func (s *Store) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	s.mu.Lock()
	fps := make([]seguid.Seguid, 0, len(s.records))
	for fp := range s.records {
		fps = append(fps, fp)
	}
	s.mu.Unlock()

	sort.Slice(fps, func(i, j int) bool { return fps[i] < fps[j] })
	index := sort.Search(len(fps), func(n int) bool {
		return fps[n] > start
	})

	for i := index; i < len(fps); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(fps[i]); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (seguid.Store, error) {
		return New(), nil
	})
}
