// Package testutil contains tests that any seguid.Store implementation should pass.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/seguid"
)

// Conformance runs the standard suite of store tests against s,
// which must be empty.
func Conformance(ctx context.Context, t *testing.T, s seguid.Store) {
	t.Run("scenarios", func(t *testing.T) { Scenarios(ctx, t, s) })
	t.Run("not_found", func(t *testing.T) { NotFound(ctx, t, s) })
	t.Run("exact_id", func(t *testing.T) { ExactID(ctx, t, s) })
	t.Run("first_match", func(t *testing.T) { FirstMatch(ctx, t, s) })
	t.Run("concurrent", func(t *testing.T) { Concurrent(ctx, t, s) })
	t.Run("list", func(t *testing.T) { List(ctx, t, s) })
}

// Scenarios checks create, update, and idempotent merges
// of a well-known record.
func Scenarios(ctx context.Context, t *testing.T, s seguid.Store) {
	fp := seguid.Seguid("X65U9zzmdcFqBX7747SdO38xuok")

	mustMerge(ctx, t, s, fp, []string{"sp|P50110", "gb|AAS56315.1"}, seguid.Created)
	checkIDs(ctx, t, s, fp, []string{"gb|AAS56315.1", "sp|P50110"})
	checkByID(ctx, t, s, "gb|AAS56315.1", fp)

	mustMerge(ctx, t, s, fp, []string{"gb|AAS56315.1", "sp|Q99999"}, seguid.Updated)
	checkIDs(ctx, t, s, fp, []string{"gb|AAS56315.1", "sp|P50110", "sp|Q99999"})
	checkByID(ctx, t, s, "sp|Q99999", fp)

	mustMerge(ctx, t, s, fp, []string{"sp|Q99999", "sp|P50110"}, seguid.Unchanged)
	mustMerge(ctx, t, s, fp, nil, seguid.Unchanged)
	checkIDs(ctx, t, s, fp, []string{"gb|AAS56315.1", "sp|P50110", "sp|Q99999"})
}

// NotFound checks that lookups of absent keys produce ErrNotFound.
func NotFound(ctx context.Context, t *testing.T, s seguid.Store) {
	if _, err := s.Get(ctx, seguid.FromSeq([]byte("not present"))); !errors.Is(err, seguid.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
	if _, err := s.ByID(ctx, "xx|not-present"); !errors.Is(err, seguid.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

// ExactID checks that reverse lookup does not match prefixes or substrings.
func ExactID(ctx context.Context, t *testing.T, s seguid.Store) {
	fp := seguid.FromSeq([]byte("MKTAYIAKQRQISFVKSHFSRQ"))
	mustMerge(ctx, t, s, fp, []string{"ref|NP_000537.3"}, seguid.Created)

	for _, id := range []string{"ref|NP_000537", "NP_000537.3", "ref|NP_000537.31"} {
		if _, err := s.ByID(ctx, id); !errors.Is(err, seguid.ErrNotFound) {
			t.Errorf("ByID(%s): got error %v, want ErrNotFound", id, err)
		}
	}
	checkByID(ctx, t, s, "ref|NP_000537.3", fp)
}

// FirstMatch checks that an identifier recorded under two Seguids
// resolves to the one that recorded it first.
func FirstMatch(ctx context.Context, t *testing.T, s seguid.Store) {
	var (
		first  = seguid.FromSeq([]byte("first"))
		second = seguid.FromSeq([]byte("second"))
	)
	mustMerge(ctx, t, s, first, []string{"xx|shared", "xx|a"}, seguid.Created)
	mustMerge(ctx, t, s, second, []string{"xx|b", "xx|shared"}, seguid.Created)
	checkByID(ctx, t, s, "xx|shared", first)
	checkByID(ctx, t, s, "xx|b", second)
}

// Concurrent checks that simultaneous merges to the same Seguid lose no identifiers
// and that exactly one of them reports Created.
func Concurrent(ctx context.Context, t *testing.T, s seguid.Store) {
	const n = 8

	var (
		fp       = seguid.FromSeq([]byte("concurrent"))
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[seguid.Outcome]int)
		errs     []error
		want     []string
	)

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("xx|%02d", i)
		want = append(want, id)

		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.Merge(ctx, fp, []string{id})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			outcomes[outcome]++
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("merge errors: %v", errs)
	}
	if outcomes[seguid.Created] != 1 {
		t.Errorf("got %d Created outcomes, want 1", outcomes[seguid.Created])
	}
	if outcomes[seguid.Updated] != n-1 {
		t.Errorf("got %d Updated outcomes, want %d", outcomes[seguid.Updated], n-1)
	}
	checkIDs(ctx, t, s, fp, want)
}

// List checks that ListSeguids produces every Seguid once, in order,
// and honors its start argument.
func List(ctx context.Context, t *testing.T, s seguid.Store) {
	var want []seguid.Seguid
	for i := 0; i < 5; i++ {
		fp := seguid.FromSeq([]byte(fmt.Sprintf("list %d", i)))
		if _, err := s.Merge(ctx, fp, []string{fmt.Sprintf("xx|list%d", i)}); err != nil {
			t.Fatal(err)
		}
		want = append(want, fp)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	all := listAll(ctx, t, s, "")
	if !sort.SliceIsSorted(all, func(i, j int) bool { return all[i] < all[j] }) {
		t.Errorf("listing not sorted: %v", all)
	}
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1] {
			t.Errorf("%s listed twice", all[i])
		}
	}
	present := make(map[seguid.Seguid]bool)
	for _, fp := range all {
		present[fp] = true
	}
	for _, fp := range want {
		if !present[fp] {
			t.Errorf("%s not listed", fp)
		}
	}

	start := want[2]
	for _, fp := range listAll(ctx, t, s, start) {
		if fp <= start {
			t.Errorf("listing after %s produced %s", start, fp)
		}
	}

	stop := errors.New("stop")
	var calls int
	err := s.ListSeguids(ctx, "", func(seguid.Seguid) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("got error %v, want the callback's error", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times after returning an error", calls)
	}
}

func listAll(ctx context.Context, t *testing.T, s seguid.Getter, start seguid.Seguid) []seguid.Seguid {
	var out []seguid.Seguid
	err := s.ListSeguids(ctx, start, func(fp seguid.Seguid) error {
		out = append(out, fp)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func mustMerge(ctx context.Context, t *testing.T, s seguid.Store, fp seguid.Seguid, ids []string, want seguid.Outcome) {
	t.Helper()

	got, err := s.Merge(ctx, fp, ids)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("merging %v into %s: got %s, want %s", ids, fp, got, want)
	}
}

func checkIDs(ctx context.Context, t *testing.T, s seguid.Getter, fp seguid.Seguid, want []string) {
	t.Helper()

	rec, err := s.Get(ctx, fp)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Seguid != fp {
		t.Errorf("got record for %s, want %s", rec.Seguid, fp)
	}
	got := append([]string{}, rec.IDs...)
	sort.Strings(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ids of %s mismatch (-want +got):\n%s", fp, diff)
	}
}

func checkByID(ctx context.Context, t *testing.T, s seguid.Getter, id string, want seguid.Seguid) {
	t.Helper()

	rec, err := s.ByID(ctx, id)
	if err != nil {
		t.Fatalf("ByID(%s): %s", id, err)
	}
	if rec.Seguid != want {
		t.Errorf("ByID(%s): got %s, want %s", id, rec.Seguid, want)
	}
}
