package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/fasta"
	"github.com/bobg/seguid/store/mem"
	"github.com/bobg/seguid/upsert"
)

// failing wraps a Submitter and fails the calls whose (1-based) numbers are in fail.
type failing struct {
	sub   Submitter
	fail  map[int]bool
	calls int
	sizes []int
}

var errTransport = errors.New("transport failure")

func (f *failing) Submit(ctx context.Context, subs []upsert.Submission) (upsert.Result, error) {
	f.calls++
	f.sizes = append(f.sizes, len(subs))
	if f.fail[f.calls] {
		return upsert.Result{}, errTransport
	}
	return f.sub.Submit(ctx, subs)
}

func genFASTA(n int) string {
	buf := new(bytes.Buffer)
	for i := 0; i < n; i++ {
		fmt.Fprintf(buf, ">gi|%d|ref|XP_%d.1|\n", i, i)
		fmt.Fprintf(buf, "MKT%dAYIAK\nQRQ%d\n", i, i)
	}
	return buf.String()
}

func noDelay() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, DefaultRetries)
}

func TestLoadRetry(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	sub := &failing{sub: upsert.New(s, nil), fail: map[int]bool{2: true}}

	core, logs := observer.New(zap.InfoLevel)
	l := New(sub, Options{Backoff: noDelay, Logger: zap.New(core)})

	tally, err := l.Load(ctx, strings.NewReader(genFASTA(1200)))
	if err != nil {
		t.Fatal(err)
	}

	want := Tally{Batches: 3, Created: 1200}
	if diff := cmp.Diff(want, tally); diff != "" {
		t.Errorf("tally mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{500, 500, 500, 200}, sub.sizes); diff != "" {
		t.Errorf("batch sizes mismatch (-want +got):\n%s", diff)
	}

	if n := logs.FilterMessage("inserting sequences 500 (gi|500) to 1000 (gi|999)").Len(); n != 1 {
		t.Errorf("got %d progress entries for the second batch, want 1", n)
	}
	if n := logs.FilterMessage("insert failed, retrying").Len(); n != 1 {
		t.Errorf("got %d retry entries, want 1", n)
	}

	rec, err := s.ByID(ctx, "ref|XP_1199.1")
	if err != nil {
		t.Fatal(err)
	}
	if want := seguid.FromSeq([]byte("MKT1199AYIAKQRQ1199")); rec.Seguid != want {
		t.Errorf("got %s, want %s", rec.Seguid, want)
	}
}

func TestLoadGiveUp(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	sub := &failing{sub: upsert.New(s, nil), fail: map[int]bool{1: true, 2: true}}

	l := New(sub, Options{BatchSize: 2, Backoff: noDelay})

	tally, err := l.Load(ctx, strings.NewReader(genFASTA(3)))
	if err != nil {
		t.Fatal(err)
	}

	want := Tally{
		Batches: 2,
		Created: 1,
		Failed:  2,
		FailedSeguids: []seguid.Seguid{
			seguid.FromSeq([]byte("MKT0AYIAKQRQ0")),
			seguid.FromSeq([]byte("MKT1AYIAKQRQ1")),
		},
	}
	if diff := cmp.Diff(want, tally); diff != "" {
		t.Errorf("tally mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.ByID(ctx, "gi|0"); !errors.Is(err, seguid.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoadConstantPolicy(t *testing.T) {
	ctx := context.Background()
	sub := &failing{sub: upsert.New(mem.New(), nil), fail: map[int]bool{1: true}}

	// Zero Retries means DefaultRetries.
	l := New(sub, Options{RetryDelay: time.Millisecond})
	tally, err := l.Load(ctx, strings.NewReader(genFASTA(2)))
	if err != nil {
		t.Fatal(err)
	}
	if tally.Created != 2 || sub.calls != 2 {
		t.Errorf("got %d created in %d calls, want 2 in 2", tally.Created, sub.calls)
	}
}

func TestLoadNoRetry(t *testing.T) {
	ctx := context.Background()
	sub := &failing{sub: upsert.New(mem.New(), nil), fail: map[int]bool{1: true}}

	l := New(sub, Options{BatchSize: 2, RetryDelay: time.Millisecond, Retries: NoRetry})
	tally, err := l.Load(ctx, strings.NewReader(genFASTA(3)))
	if err != nil {
		t.Fatal(err)
	}
	if tally.Created != 1 || tally.Failed != 2 || sub.calls != 2 {
		t.Errorf("got %d created, %d failed in %d calls, want 1, 2 in 2", tally.Created, tally.Failed, sub.calls)
	}
}

func TestLoadUniProt(t *testing.T) {
	const input = `>sp|B1X797|6PGL_ECODH 6-phosphogluconolactonase
MKTAYIAK
>
ACGT
>sp|P50110|SF3A3_YEAST Pre-mRNA-splicing factor
MKTAYIAK
`
	ctx := context.Background()
	s := mem.New()
	l := New(upsert.New(s, nil), Options{Dialect: fasta.UniProt})

	tally, err := l.Load(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Tally{Batches: 1, Created: 1, Skipped: 1}, tally); diff != "" {
		t.Errorf("tally mismatch (-want +got):\n%s", diff)
	}

	rec, err := s.Get(ctx, seguid.FromSeq([]byte("MKTAYIAK")))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"mnemonic|6PGL_ECODH", "mnemonic|SF3A3_YEAST", "sp|B1X797", "sp|P50110"}
	if diff := cmp.Diff(want, rec.IDs); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}
