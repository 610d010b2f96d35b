package seguid

import (
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strings"
)

type (
	// Seguid is the fingerprint of a sequence:
	// the base64-encoded SHA-1 digest of its bytes,
	// with the padding removed.
	Seguid string

	// Record is the persisted mapping from a Seguid to its identifiers.
	// IDs has set semantics.
	Record struct {
		Seguid Seguid   `json:"seguid"`
		IDs    []string `json:"ids"`
	}
)

// Len is the length of every well-formed Seguid.
const Len = 27

// FromSeq computes the Seguid of a sequence.
func FromSeq(seq []byte) Seguid {
	sum := sha1.Sum(seq)
	return Seguid(base64.RawStdEncoding.EncodeToString(sum[:]))
}

var urlAlphabet = strings.NewReplacer("-", "+", "_", "/")

// FromURL converts a Seguid in the URL-safe base64 alphabet
// (RFC 4648, section 5)
// to the standard alphabet.
// Seguids already in the standard alphabet pass through unchanged.
func FromURL(s string) Seguid {
	return Seguid(urlAlphabet.Replace(s))
}

// Valid tells whether s has the length of a Seguid.
// It does not (and cannot) tell whether s was computed from any sequence.
func (s Seguid) Valid() bool {
	return len(s) == Len
}

func (s Seguid) String() string {
	return string(s)
}

// KeyPrefix is the namespace of Seguid records in a shared key space.
const KeyPrefix = "seguid:"

// KeyName is the storage key of the record for s.
func KeyName(s Seguid) string {
	return KeyPrefix + string(s)
}

// Outcome tells what a Merge did.
type Outcome int

const (
	// Unchanged means the record already had every identifier.
	Unchanged Outcome = iota

	// Created means there was no record and now there is.
	Created

	// Updated means the record gained at least one identifier.
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Created:
		return "created"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// Union merges add into have with set semantics.
// The result is sorted and free of duplicates.
// The int result is the number of members of add that were not in have.
func Union(have, add []string) ([]string, int) {
	set := make(map[string]struct{}, len(have)+len(add))
	for _, id := range have {
		set[id] = struct{}{}
	}
	before := len(set)
	for _, id := range add {
		set[id] = struct{}{}
	}
	return sortedKeys(set), len(set) - before
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
