package kv

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bobg/seguid"
)

var _ Store = &Mem{}

// Mem is an in-memory Store.
// Its versions are per-key write counters.
type Mem struct {
	mu   sync.Mutex
	vals map[string]memEntry
}

type memEntry struct {
	val []byte
	gen int
}

// NewMem produces a new, empty Mem.
func NewMem() *Mem {
	return &Mem{vals: make(map[string]memEntry)}
}

// Get implements Store.Get.
func (m *Mem) Get(_ context.Context, key string) ([]byte, Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.vals[key]
	if !ok {
		return nil, NoVersion, seguid.ErrNotFound
	}
	return append([]byte(nil), e.val...), Version(strconv.Itoa(e.gen)), nil
}

// Put implements Store.Put.
func (m *Mem) Put(_ context.Context, key string, val []byte, prev Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.vals[key]
	switch {
	case !ok && prev != NoVersion:
		return ErrConflict
	case ok && Version(strconv.Itoa(e.gen)) != prev:
		return ErrConflict
	}
	m.vals[key] = memEntry{val: append([]byte(nil), val...), gen: e.gen + 1}
	return nil
}

// List implements Store.List.
func (m *Mem) List(ctx context.Context, prefix, after string, f func(string) error) error {
	m.mu.Lock()
	var keys []string
	for k := range m.vals {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	m.mu.Unlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(k); err != nil {
			return err
		}
	}
	return nil
}
