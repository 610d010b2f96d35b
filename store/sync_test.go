package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/seguid"
	. "github.com/bobg/seguid/store"
	"github.com/bobg/seguid/store/mem"
)

func TestSync(t *testing.T) {
	const text = `abc def ghi jkl mno pqr stu`

	var (
		ctx    = context.Background()
		words  = strings.Fields(text)
		stores = make([]seguid.Store, 0, len(words))
	)
	for i := range words {
		s := mem.New()
		stores = append(stores, s)
		for j, word := range words {
			if i == j {
				continue
			}

			// Each store knows a different identifier for every sequence.
			ids := []string{"xx|" + word, "yy|" + word + words[i]}
			_, err := s.Merge(ctx, seguid.FromSeq([]byte(word)), ids)
			if err != nil {
				t.Fatal(err)
			}
		}
	}

	err := Sync(ctx, stores)
	if err != nil {
		t.Fatal(err)
	}

	dump := func(s seguid.Store) map[seguid.Seguid][]string {
		out := make(map[seguid.Seguid][]string)
		err := s.ListSeguids(ctx, "", func(fp seguid.Seguid) error {
			rec, err := s.Get(ctx, fp)
			if err != nil {
				return err
			}
			out[fp] = rec.IDs
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	want := dump(stores[0])
	if len(want) != len(words) {
		t.Errorf("got %d records, want %d", len(want), len(words))
	}

	abc := want[seguid.FromSeq([]byte("abc"))]
	if len(abc) != len(words) {
		// The xx id plus one yy id from each store except the first.
		t.Errorf("got ids %v for abc, want %d of them", abc, len(words))
	}

	for i := 1; i < len(stores); i++ {
		if diff := cmp.Diff(want, dump(stores[i])); diff != "" {
			t.Errorf("store %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	s, err := FromConfig(ctx, map[string]interface{}{"type": "mem"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*mem.Store); !ok {
		t.Errorf("got %T, want *mem.Store", s)
	}

	if _, err := FromConfig(ctx, map[string]interface{}{"type": "nonesuch"}); err == nil {
		t.Error("got no error for an unregistered type")
	}
	if _, err := FromConfig(ctx, map[string]interface{}{}); err == nil {
		t.Error("got no error for a config without a type")
	}
}
