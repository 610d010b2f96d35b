package seguid

import (
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
)

func TestFromSeq(t *testing.T) {
	cases := []struct {
		seq  string
		want Seguid
	}{
		{seq: "", want: "2jmj7l5rSw0yVb/vlWAYkK/YBwk"},
		{seq: "ACGT", want: "IQiZThf2zKn/I1KtqStlEdsHYDQ"},
		{seq: "MKTAYIAKQRQISFVKSHFSRQ", want: "mxX9X2aOWUk3ChHW0N0w9qTgaH4"},
	}
	for _, c := range cases {
		t.Run(c.seq, func(t *testing.T) {
			got := FromSeq([]byte(c.seq))
			if got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
			if !got.Valid() {
				t.Errorf("%s is not valid", got)
			}
		})
	}
}

func TestFromSeqDeterministic(t *testing.T) {
	f := func(seq []byte) bool {
		a, b := FromSeq(seq), FromSeq(append([]byte(nil), seq...))
		return a == b && len(a) == Len
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestFromURL(t *testing.T) {
	cases := []struct {
		in   string
		want Seguid
	}{
		{in: "2jmj7l5rSw0yVb_vlWAYkK_YBwk", want: "2jmj7l5rSw0yVb/vlWAYkK/YBwk"},
		{in: "a-b_c", want: "a+b/c"},
		{in: "2jmj7l5rSw0yVb/vlWAYkK/YBwk", want: "2jmj7l5rSw0yVb/vlWAYkK/YBwk"},
	}
	for _, c := range cases {
		if got := FromURL(c.in); got != c.want {
			t.Errorf("FromURL(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestValid(t *testing.T) {
	if Seguid("short").Valid() {
		t.Error("short seguid is valid")
	}
	if Seguid("X65U9zzmdcFqBX7747SdO38xuokX").Valid() {
		t.Error("long seguid is valid")
	}
	if !Seguid("X65U9zzmdcFqBX7747SdO38xuok").Valid() {
		t.Error("27-character seguid is not valid")
	}
}

func TestKeyName(t *testing.T) {
	if got := KeyName("X65U9zzmdcFqBX7747SdO38xuok"); got != "seguid:X65U9zzmdcFqBX7747SdO38xuok" {
		t.Errorf("got %s", got)
	}
}

func TestUnion(t *testing.T) {
	cases := []struct {
		have, add []string
		want      []string
		wantAdded int
	}{
		{want: []string{}},
		{add: []string{"b", "a", "b"}, want: []string{"a", "b"}, wantAdded: 2},
		{have: []string{"sp|P50110", "gb|AAS56315.1"}, add: []string{"gb|AAS56315.1", "sp|Q99999"}, want: []string{"gb|AAS56315.1", "sp|P50110", "sp|Q99999"}, wantAdded: 1},
		{have: []string{"a", "b"}, add: []string{"b", "a"}, want: []string{"a", "b"}},
	}
	for i, c := range cases {
		got, added := Union(c.have, c.add)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("case %d: mismatch (-want +got):\n%s", i+1, diff)
		}
		if added != c.wantAdded {
			t.Errorf("case %d: got %d added, want %d", i+1, added, c.wantAdded)
		}
	}
}
