package seguid

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ParseSeguids parses a comma-separated list of Seguids,
// as it arrives in a URL path.
// Each member may be in either base64 alphabet.
//
// A list is split on commas only when it is longer than a single Seguid.
// Empty members are dropped, as in ParseIDs.
// The list is malformed when it is empty,
// when it is longer than a Seguid but contains no comma,
// or when any remaining member has the wrong length.
func ParseSeguids(s string) ([]Seguid, error) {
	if s == "" {
		return nil, errors.Wrap(ErrMalformed, "no seguids")
	}
	if len(s) <= Len {
		out := FromURL(s)
		if !out.Valid() {
			return nil, errors.Wrapf(ErrMalformed, "seguid %s has length %d", s, len(s))
		}
		return []Seguid{out}, nil
	}
	if !strings.Contains(s, ",") {
		return nil, errors.Wrapf(ErrMalformed, "%d characters and no delimiter", len(s))
	}

	var out []Seguid
	for _, tok := range strings.Split(s, ",") {
		if tok == "" {
			continue
		}
		seg := FromURL(tok)
		if !seg.Valid() {
			return nil, errors.Wrapf(ErrMalformed, "seguid %s has length %d", tok, len(tok))
		}
		out = append(out, seg)
	}
	if len(out) == 0 {
		return nil, errors.Wrap(ErrMalformed, "no seguids")
	}
	return out, nil
}

// ParseIDs parses a comma-separated list of identifiers.
// Empty members are dropped.
// An empty list is malformed.
func ParseIDs(s string) ([]string, error) {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return nil, errors.Wrap(ErrMalformed, "no ids")
	}
	return out, nil
}

// Lookup is the forward query.
// It maps each given Seguid to its identifiers,
// or to an empty list when g has no record for it.
// The boolean result is true when at least one Seguid was found.
// An error is returned only for failures other than ErrNotFound.
func Lookup(ctx context.Context, g Getter, seguids []Seguid) (map[Seguid][]string, bool, error) {
	recs, err := GetMulti(ctx, g, seguids)
	if err := unlessNotFound(err); err != nil {
		return nil, false, errors.Wrap(err, "getting records")
	}

	var (
		out   = make(map[Seguid][]string, len(seguids))
		found bool
	)
	for _, s := range seguids {
		rec, ok := recs[s]
		if !ok {
			out[s] = []string{}
			continue
		}
		found = true
		if rec.IDs == nil {
			rec.IDs = []string{}
		}
		out[s] = rec.IDs
	}
	return out, found, nil
}

// LookupIDs is the reverse query.
// It maps each given identifier to the Seguid of the record containing it,
// or to the empty string when there is none.
// The boolean result is true when at least one identifier was found.
// An error is returned only for failures other than ErrNotFound.
func LookupIDs(ctx context.Context, g Getter, ids []string) (map[string]Seguid, bool, error) {
	recs, err := ByIDMulti(ctx, g, ids)
	if err := unlessNotFound(err); err != nil {
		return nil, false, errors.Wrap(err, "getting records by id")
	}

	var (
		out   = make(map[string]Seguid, len(ids))
		found bool
	)
	for _, id := range ids {
		rec, ok := recs[id]
		if !ok {
			out[id] = ""
			continue
		}
		found = true
		out[id] = rec.Seguid
	}
	return out, found, nil
}

// unlessNotFound filters ErrNotFound entries out of a MultiErr.
func unlessNotFound(err error) error {
	if err == nil {
		return nil
	}
	merr, ok := err.(MultiErr)
	if !ok {
		return err
	}
	for _, e := range merr {
		if !errors.Is(e, ErrNotFound) {
			return merr
		}
	}
	return nil
}
