package testutil

import (
	"context"
	"sort"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/seguid"
)

// AllSeguids merges a random set of random sequences into an empty store
// and makes sure that the right set of Seguids comes back in a call to ListSeguids.
func AllSeguids(ctx context.Context, t *testing.T, storeFactory func() seguid.Store) {
	if err := quick.Check(allSeguidsHelper(ctx, t, storeFactory), &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func allSeguidsHelper(ctx context.Context, t *testing.T, storeFactory func() seguid.Store) func([][]byte) bool {
	return func(seqs [][]byte) bool {
		var (
			store = storeFactory()
			want  []seguid.Seguid
		)
		for _, seq := range seqs {
			fp := seguid.FromSeq(seq)
			outcome, err := store.Merge(ctx, fp, []string{"xx|" + string(fp)})
			if err != nil {
				t.Fatal(err)
			}
			if outcome == seguid.Created {
				want = append(want, fp)
			}
		}
		got := listAll(ctx, t, store, "")

		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

		if diff := cmp.Diff(want, got); diff != "" {
			t.Logf("mismatch (-want +got):\n%s", diff)
			return false
		}
		return true
	}
}
