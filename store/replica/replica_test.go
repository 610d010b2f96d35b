package replica

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
	"github.com/bobg/seguid/store/mem"
	"github.com/bobg/seguid/testutil"
)

func TestStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testutil.Conformance(ctx, t, New(ctx, []seguid.Store{mem.New(), mem.New()}, nil, 1))
}

func TestAllSeguids(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testutil.AllSeguids(ctx, t, func() seguid.Store {
		return New(ctx, []seguid.Store{mem.New(), mem.New()}, nil, 1)
	})
}

const (
	fp1 = seguid.Seguid("2jmj7l5rSw0yVb/vlWAYkK/YBwk")
	fp2 = seguid.Seguid("IQiZThf2zKn/I1KtqStlEdsHYDQ")
	fp3 = seguid.Seguid("X65U9zzmdcFqBX7747SdO38xuok")
)

func TestReplicaSets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		m1 = mem.New()
		m2 = mem.New()
		s  = New(ctx, []seguid.Store{m1, m2}, nil, 1)
	)

	if _, err := m1.Merge(ctx, fp1, []string{"xx|1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m2.Merge(ctx, fp2, []string{"xx|2"}); err != nil {
		t.Fatal(err)
	}
	outcome, err := s.Merge(ctx, fp3, []string{"xx|3"})
	if err != nil {
		t.Fatal(err)
	}
	if outcome != seguid.Created {
		t.Errorf("got outcome %s, want created", outcome)
	}

	checkReplica(ctx, t, "m1", m1, fp1, fp3)
	checkReplica(ctx, t, "m2", m2, fp2, fp3)
	checkReplica(ctx, t, "replica", s, fp3, fp1, fp2)

	rec, err := s.ByID(ctx, "xx|2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Seguid != fp2 {
		t.Errorf("got %s, want %s", rec.Seguid, fp2)
	}
}

func checkReplica(ctx context.Context, t *testing.T, name string, s seguid.Store, want ...seguid.Seguid) {
	t.Run(name, func(t *testing.T) {
		var got []seguid.Seguid
		err := s.ListSeguids(ctx, "", func(fp seguid.Seguid) error {
			got = append(got, fp)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(sorted(want), got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func sorted(fps []seguid.Seguid) []seguid.Seguid {
	out := append([]seguid.Seguid{}, fps...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestAsync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		primary = mem.New()
		backup  = mem.New()
		s       = New(ctx, []seguid.Store{primary}, []seguid.Store{backup}, 4)
	)

	for _, id := range []string{"xx|1", "xx|2", "xx|3"} {
		if _, err := s.Merge(ctx, fp1, []string{id}); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"xx|1", "xx|2", "xx|3"}
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, err := backup.Get(ctx, fp1)
		if err == nil && cmp.Equal(want, rec.IDs) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backup never caught up: %v, %v", rec.IDs, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFromConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf := map[string]interface{}{
		"type": "replica",
		"sync": []interface{}{
			map[string]interface{}{"type": "mem"},
			map[string]interface{}{"type": "mem"},
		},
		"async": []interface{}{
			map[string]interface{}{"type": "mem"},
		},
	}
	s, err := store.FromConfig(ctx, conf)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := s.(*Store)
	if !ok {
		t.Fatalf("got %T, want *Store", s)
	}
	if len(r.sync) != 2 || len(r.async) != 1 {
		t.Errorf("got %d sync and %d async stores, want 2 and 1", len(r.sync), len(r.async))
	}
}
