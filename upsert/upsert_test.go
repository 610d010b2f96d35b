package upsert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store/mem"
)

const p50110 = seguid.Seguid("X65U9zzmdcFqBX7747SdO38xuok")

func TestParseSubmissions(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    []Submission
		wantErr bool
	}{
		{
			name: "mixed",
			in:   `[{"seq": "ACGT", "ids": ["gb|1"]}, {"seguid": "X65U9zzmdcFqBX7747SdO38xuok", "ids": ["sp|P50110"]}]`,
			want: []Submission{
				SequenceSubmission{Seq: "ACGT", IDs: []string{"gb|1"}},
				FingerprintSubmission{Seguid: "X65U9zzmdcFqBX7747SdO38xuok", IDs: []string{"sp|P50110"}},
			},
		},
		{
			name: "empty",
			in:   `[]`,
			want: []Submission{},
		},
		{
			name:    "missing ids",
			in:      `[{"seq": "A", "ids": ["x|1"]}, {"seq": "C"}, {"seq": "G", "ids": ["x|3"]}]`,
			wantErr: true,
		},
		{
			name:    "both",
			in:      `[{"seq": "A", "seguid": "X65U9zzmdcFqBX7747SdO38xuok", "ids": ["x|1"]}]`,
			wantErr: true,
		},
		{
			name:    "neither",
			in:      `[{"ids": ["x|1"]}]`,
			wantErr: true,
		},
		{
			name:    "short seguid",
			in:      `[{"seguid": "short", "ids": ["x|1"]}]`,
			wantErr: true,
		},
		{
			name:    "not an array",
			in:      `{"seq": "A", "ids": ["x|1"]}`,
			wantErr: true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseSubmissions([]byte(c.in))
			if c.wantErr {
				if !errors.Is(err, seguid.ErrMalformed) {
					t.Fatalf("got error %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}

			b, err := MarshalSubmissions(got)
			if err != nil {
				t.Fatal(err)
			}
			again, err := ParseSubmissions(b)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("reparse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMalformedPersistsNothing(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		c   = New(s, nil)
	)
	subs := []Submission{
		SequenceSubmission{Seq: "A", IDs: []string{"x|1"}},
		SequenceSubmission{Seq: "C"},
		SequenceSubmission{Seq: "G", IDs: []string{"x|3"}},
	}
	if _, err := c.Upsert(ctx, subs, true); !errors.Is(err, seguid.ErrMalformed) {
		t.Fatalf("got error %v, want ErrMalformed", err)
	}
	for _, seq := range []string{"A", "C", "G"} {
		if _, err := s.Get(ctx, seguid.FromSeq([]byte(seq))); !errors.Is(err, seguid.ErrNotFound) {
			t.Errorf("record for %s: got error %v, want ErrNotFound", seq, err)
		}
	}
}

func TestUnauthorized(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		c   = New(s, nil)
	)
	subs := []Submission{
		SequenceSubmission{Seq: "A", IDs: []string{"x|1"}},
		FingerprintSubmission{Seguid: string(p50110), IDs: []string{"sp|P50110"}},
	}
	if _, err := c.Upsert(ctx, subs, false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got error %v, want ErrUnauthorized", err)
	}
	if _, err := s.Get(ctx, seguid.FromSeq([]byte("A"))); !errors.Is(err, seguid.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}

	res, err := c.Upsert(ctx, subs[:1], false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Success {
		t.Errorf("got %s, want success", res.Status)
	}
}

func TestUpsert(t *testing.T) {
	var (
		ctx  = context.Background()
		s    = mem.New()
		c    = New(s, nil)
		acgt = seguid.FromSeq([]byte("ACGT"))
	)

	if _, err := s.Merge(ctx, p50110, []string{"sp|P50110"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Merge(ctx, seguid.FromSeq([]byte("TTTT")), []string{"x|t"}); err != nil {
		t.Fatal(err)
	}

	subs := []Submission{
		SequenceSubmission{Seq: "ACGT", IDs: []string{"gb|1"}},
		FingerprintSubmission{Seguid: string(p50110), IDs: []string{"gb|AAS56315.1"}},
		SequenceSubmission{Seq: "TTTT", IDs: []string{"x|t"}},
		SequenceSubmission{Seq: "ACGT", IDs: []string{"gb|2"}},
	}
	res, err := c.Upsert(ctx, subs, true)
	if err != nil {
		t.Fatal(err)
	}

	want := Result{
		Created:   []seguid.Seguid{acgt},
		Updated:   []seguid.Seguid{p50110},
		Unchanged: []seguid.Seguid{seguid.FromSeq([]byte("TTTT"))},
		Status:    Success,
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	rec, err := s.Get(ctx, acgt)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"gb|1", "gb|2"}, rec.IDs); diff != "" {
		t.Errorf("coalesced ids mismatch (-want +got):\n%s", diff)
	}

	// Idempotence.
	res, err = c.Upsert(ctx, subs, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Unchanged) != 3 || res.Status != Success {
		t.Errorf("resubmission: got %+v, want 3 unchanged", res)
	}
}

func TestEmpty(t *testing.T) {
	res, err := New(mem.New(), nil).Upsert(context.Background(), nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Failure {
		t.Errorf("got %s, want failure", res.Status)
	}
}

// flaky fails merges of one Seguid.
type flaky struct {
	*mem.Store
	bad seguid.Seguid
}

func (f flaky) Merge(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	if fp == f.bad {
		return seguid.Unchanged, errors.New("boom")
	}
	return f.Store.Merge(ctx, fp, ids)
}

func TestPartialFailure(t *testing.T) {
	var (
		ctx = context.Background()
		bad = seguid.FromSeq([]byte("C"))
		c   = New(flaky{Store: mem.New(), bad: bad}, nil)
	)

	res, err := c.Upsert(ctx, []Submission{
		SequenceSubmission{Seq: "A", IDs: []string{"x|1"}},
		SequenceSubmission{Seq: "C", IDs: []string{"x|2"}},
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != PartialSuccess {
		t.Errorf("got %s, want partial success", res.Status)
	}
	if diff := cmp.Diff([]seguid.Seguid{bad}, res.Failed); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	res, err = c.Upsert(ctx, []Submission{SequenceSubmission{Seq: "C", IDs: []string{"x|2"}}}, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Failure {
		t.Errorf("got %s, want failure", res.Status)
	}
}

func TestResultJSON(t *testing.T) {
	res := Result{Created: []seguid.Seguid{p50110}, Status: Success}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"created":["X65U9zzmdcFqBX7747SdO38xuok"],"updated":[],"unchanged":[],"failed":[],"result":"success"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}

	var got Result
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != Success || len(got.Created) != 1 || got.Created[0] != p50110 {
		t.Errorf("got %+v", got)
	}
}
