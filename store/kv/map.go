package kv

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/seguid"
)

// IDPrefix is the namespace of the reverse index in a shared key space.
const IDPrefix = "id:"

// DefaultMaxAttempts is the default value of Map.MaxAttempts.
const DefaultMaxAttempts = 10

var _ seguid.Store = &Map{}

// Map is a seguid.Store on top of a kv.Store.
//
// Each record lives at seguid.KeyName of its Seguid.
// Each identifier has a reverse-index entry at IDPrefix+id
// naming the first Seguid to record it.
// Index entries are written only after the record they point to
// and are never overwritten.
type Map struct {
	kv Store

	// MaxAttempts is the number of times Merge tries
	// to write a record before giving up with ErrContention.
	MaxAttempts int
}

// NewMap produces a new Map on kv.
func NewMap(kv Store) *Map {
	return &Map{kv: kv, MaxAttempts: DefaultMaxAttempts}
}

func (m *Map) get(ctx context.Context, fp seguid.Seguid) (seguid.Record, Version, error) {
	val, ver, err := m.kv.Get(ctx, seguid.KeyName(fp))
	if err != nil {
		return seguid.Record{}, NoVersion, err
	}
	var rec seguid.Record
	if err := rec.UnmarshalBinary(val); err != nil {
		return seguid.Record{}, NoVersion, errors.Wrapf(err, "decoding %s", fp)
	}
	return rec, ver, nil
}

// Get gets the record for fp.
func (m *Map) Get(ctx context.Context, fp seguid.Seguid) (seguid.Record, error) {
	rec, _, err := m.get(ctx, fp)
	return rec, err
}

// ByID gets the record that first recorded id.
func (m *Map) ByID(ctx context.Context, id string) (seguid.Record, error) {
	val, _, err := m.kv.Get(ctx, IDPrefix+id)
	if err != nil {
		return seguid.Record{}, err
	}
	return m.Get(ctx, seguid.Seguid(val))
}

// Merge adds ids to the record for fp.
// A write that loses a race to another writer is retried
// against the newer record.
func (m *Map) Merge(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	outcome, err := m.mergeRecord(ctx, fp, ids)
	if err != nil {
		return outcome, err
	}
	return outcome, m.index(ctx, fp, ids)
}

func (m *Map) mergeRecord(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	attempts := m.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for i := 0; i < attempts; i++ {
		rec, ver, err := m.get(ctx, fp)
		exists := err == nil
		if err != nil && !errors.Is(err, seguid.ErrNotFound) {
			return seguid.Unchanged, errors.Wrapf(err, "reading %s", fp)
		}

		merged, added := seguid.Union(rec.IDs, ids)
		if exists && added == 0 {
			return seguid.Unchanged, nil
		}

		val, err := seguid.Record{Seguid: fp, IDs: merged}.MarshalBinary()
		if err != nil {
			return seguid.Unchanged, errors.Wrapf(err, "encoding %s", fp)
		}

		err = m.kv.Put(ctx, seguid.KeyName(fp), val, ver)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return seguid.Unchanged, errors.Wrapf(err, "writing %s", fp)
		}
		if exists {
			return seguid.Updated, nil
		}
		return seguid.Created, nil
	}

	return seguid.Unchanged, errors.Wrapf(ErrContention, "merging %s after %d attempts", fp, attempts)
}

// The index is written for every submitted id, not only new ones,
// so that a merge interrupted between the record write and the index write
// is repaired by a retry.
func (m *Map) index(ctx context.Context, fp seguid.Seguid, ids []string) error {
	for _, id := range ids {
		err := m.kv.Put(ctx, IDPrefix+id, []byte(fp), NoVersion)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "indexing %s", id)
		}
	}
	return nil
}

// ListSeguids produces all Seguids in the store, in lexicographic order.
func (m *Map) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	after := ""
	if start != "" {
		after = seguid.KeyName(start)
	}
	return m.kv.List(ctx, seguid.KeyPrefix, after, func(key string) error {
		return f(seguid.Seguid(strings.TrimPrefix(key, seguid.KeyPrefix)))
	})
}
