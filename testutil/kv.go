package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store/kv"
)

// KV checks the conditional-write and listing behavior of an empty kv.Store.
func KV(ctx context.Context, t *testing.T, s kv.Store) {
	if _, _, err := s.Get(ctx, "a:1"); !errors.Is(err, seguid.ErrNotFound) {
		t.Fatalf("got error %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "a:1", []byte("one"), kv.NoVersion); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "a:1", []byte("uno"), kv.NoVersion); !errors.Is(err, kv.ErrConflict) {
		t.Fatalf("create-only overwrite: got error %v, want ErrConflict", err)
	}

	val, ver, err := s.Get(ctx, "a:1")
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "one" {
		t.Errorf("got %q, want one", val)
	}
	if ver == kv.NoVersion {
		t.Error("existing key has NoVersion")
	}

	if err := s.Put(ctx, "a:1", []byte("uno"), ver); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "a:1", []byte("eins"), ver); !errors.Is(err, kv.ErrConflict) {
		t.Fatalf("stale overwrite: got error %v, want ErrConflict", err)
	}
	if err := s.Put(ctx, "a:2", []byte("two"), ver); !errors.Is(err, kv.ErrConflict) {
		t.Fatalf("versioned write to a missing key: got error %v, want ErrConflict", err)
	}

	val, _, err = s.Get(ctx, "a:1")
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "uno" {
		t.Errorf("got %q, want uno", val)
	}

	for _, key := range []string{"a:3", "a:2", "b:1", "a:x/y"} {
		if err := s.Put(ctx, key, []byte(key), kv.NoVersion); err != nil {
			t.Fatal(err)
		}
	}

	list := func(prefix, after string) []string {
		var out []string
		err := s.List(ctx, prefix, after, func(key string) error {
			out = append(out, key)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	if diff := cmp.Diff([]string{"a:1", "a:2", "a:3", "a:x/y"}, list("a:", "")); diff != "" {
		t.Errorf("listing a: mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a:3", "a:x/y"}, list("a:", "a:2")); diff != "" {
		t.Errorf("listing a: after a:2 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b:1"}, list("b:", "")); diff != "" {
		t.Errorf("listing b: mismatch (-want +got):\n%s", diff)
	}
}
