package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store/kv"
	"github.com/bobg/seguid/testutil"
)

func TestMem(t *testing.T) {
	testutil.KV(context.Background(), t, kv.NewMem())
}

func TestMap(t *testing.T) {
	testutil.Conformance(context.Background(), t, kv.NewMap(kv.NewMem()))
}

func TestAllSeguids(t *testing.T) {
	testutil.AllSeguids(context.Background(), t, func() seguid.Store { return kv.NewMap(kv.NewMem()) })
}

// contentious is a Store whose record writes
// lose to a competing writer a fixed number of times.
type contentious struct {
	*kv.Mem
	losses int
}

func (c *contentious) Put(ctx context.Context, key string, val []byte, prev kv.Version) error {
	if key != seguid.KeyName(fp) || c.losses == 0 {
		return c.Mem.Put(ctx, key, val, prev)
	}
	c.losses--

	// Simulate a competing writer that adds an identifier first.
	cur, ver, err := c.Mem.Get(ctx, key)
	var rec seguid.Record
	if err == nil {
		if err := rec.UnmarshalBinary(cur); err != nil {
			return err
		}
	}
	rec.Seguid = fp
	rec.IDs, _ = seguid.Union(rec.IDs, []string{"xx|rival"})
	b, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	if err := c.Mem.Put(ctx, key, b, ver); err != nil {
		return err
	}
	return kv.ErrConflict
}

const fp = seguid.Seguid("X65U9zzmdcFqBX7747SdO38xuok")

func TestMergeRetry(t *testing.T) {
	ctx := context.Background()
	c := &contentious{Mem: kv.NewMem(), losses: 3}
	m := kv.NewMap(c)

	outcome, err := m.Merge(ctx, fp, []string{"sp|P50110"})
	if err != nil {
		t.Fatal(err)
	}

	// The rival created the record, so this merge only updated it.
	if outcome != seguid.Updated {
		t.Errorf("got %s, want updated", outcome)
	}

	rec, err := m.Get(ctx, fp)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.IDs) != 2 || rec.IDs[0] != "sp|P50110" || rec.IDs[1] != "xx|rival" {
		t.Errorf("got ids %v, want [sp|P50110 xx|rival]", rec.IDs)
	}
}

func TestMergeContention(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMap(&contentious{Mem: kv.NewMem(), losses: 100})
	m.MaxAttempts = 3

	if _, err := m.Merge(ctx, fp, []string{"sp|P50110"}); !errors.Is(err, kv.ErrContention) {
		t.Errorf("got error %v, want kv.ErrContention", err)
	}
	if _, err := m.ByID(ctx, "sp|P50110"); !errors.Is(err, seguid.ErrNotFound) {
		t.Errorf("unwritten id is indexed (error %v)", err)
	}
}

func TestIndexRepair(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMem()
	m := kv.NewMap(mem)

	// Write a record without its index entries,
	// as if a merge was interrupted.
	b, err := seguid.Record{Seguid: fp, IDs: []string{"sp|P50110"}}.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Put(ctx, seguid.KeyName(fp), b, kv.NoVersion); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ByID(ctx, "sp|P50110"); !errors.Is(err, seguid.ErrNotFound) {
		t.Fatalf("got error %v, want ErrNotFound", err)
	}

	outcome, err := m.Merge(ctx, fp, []string{"sp|P50110"})
	if err != nil {
		t.Fatal(err)
	}
	if outcome != seguid.Unchanged {
		t.Errorf("got %s, want unchanged", outcome)
	}
	rec, err := m.ByID(ctx, "sp|P50110")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Seguid != fp {
		t.Errorf("got %s, want %s", rec.Seguid, fp)
	}
}
