package seguid

import (
	"context"
	"fmt"
	"strings"
)

// MultiGetter is a Getter that can perform its own GetMulti.
type MultiGetter interface {
	GetMulti(context.Context, []Seguid) (map[Seguid]Record, error)
}

// GetMulti gets multiple records with a single call.
// By default this is implemented as a bunch of concurrent individual Get calls.
// However, if g implements MultiGetter, its GetMulti method is used instead.
// The return value is a mapping of input Seguids to the records that were found in g.
// The returned error may be a MultiErr,
// mapping input Seguids to errors encountered retrieving those specific records
// (including ErrNotFound).
// In particular, when the error return is a MultiErr,
// every input Seguid appears in either the result map or the MultiErr map.
func GetMulti(ctx context.Context, g Getter, seguids []Seguid) (map[Seguid]Record, error) {
	if m, ok := g.(MultiGetter); ok {
		return m.GetMulti(ctx, seguids)
	}

	type triple struct {
		s   Seguid
		rec Record
		err error
	}

	var (
		res = make(map[Seguid]Record)
		ch  = make(chan triple, len(seguids))
	)

	for _, s := range seguids {
		s := s
		go func() {
			rec, err := g.Get(ctx, s)
			ch <- triple{s: s, rec: rec, err: err}
		}()
	}

	var errmap MultiErr

	for i := 0; i < len(seguids); i++ {
		trip := <-ch
		if trip.err != nil {
			if errmap == nil {
				errmap = make(MultiErr)
			}
			errmap[string(trip.s)] = trip.err
			continue
		}
		res[trip.s] = trip.rec
	}

	if errmap == nil {
		return res, nil
	}
	return res, errmap
}

// ByIDMulti is like GetMulti but for reverse lookups.
// The result maps input identifiers to the records containing them.
// The returned error may be a MultiErr keyed by identifier.
func ByIDMulti(ctx context.Context, g Getter, ids []string) (map[string]Record, error) {
	type triple struct {
		id  string
		rec Record
		err error
	}

	var (
		res = make(map[string]Record)
		ch  = make(chan triple, len(ids))
	)

	for _, id := range ids {
		id := id
		go func() {
			rec, err := g.ByID(ctx, id)
			ch <- triple{id: id, rec: rec, err: err}
		}()
	}

	var errmap MultiErr

	for i := 0; i < len(ids); i++ {
		trip := <-ch
		if trip.err != nil {
			if errmap == nil {
				errmap = make(MultiErr)
			}
			errmap[trip.id] = trip.err
			continue
		}
		res[trip.id] = trip.rec
	}

	if errmap == nil {
		return res, nil
	}
	return res, errmap
}

// Pair is one Merge request: a Seguid and the identifiers to add to it.
type Pair struct {
	Seguid Seguid
	IDs    []string
}

// MergeMulti performs multiple Merge calls concurrently.
// Every Merge is issued before any result is awaited.
// The return value maps each input Seguid to its Outcome.
// The returned error may be a MultiErr,
// mapping input Seguids to the errors encountered merging them.
// A failure for one pair does not affect the others.
// Callers should not pass the same Seguid twice.
func MergeMulti(ctx context.Context, s Store, pairs []Pair) (map[Seguid]Outcome, error) {
	type triple struct {
		s       Seguid
		outcome Outcome
		err     error
	}

	var (
		res = make(map[Seguid]Outcome)
		ch  = make(chan triple, len(pairs))
	)

	for _, pair := range pairs {
		pair := pair
		go func() {
			outcome, err := s.Merge(ctx, pair.Seguid, pair.IDs)
			ch <- triple{s: pair.Seguid, outcome: outcome, err: err}
		}()
	}

	var errmap MultiErr

	for i := 0; i < len(pairs); i++ {
		trip := <-ch
		if trip.err != nil {
			if errmap == nil {
				errmap = make(MultiErr)
			}
			errmap[string(trip.s)] = trip.err
			continue
		}
		res[trip.s] = trip.outcome
	}

	if errmap == nil {
		return res, nil
	}
	return res, errmap
}

// MultiErr is a type of error returned by GetMulti, ByIDMulti, and MergeMulti.
// It maps individual keys (Seguids or identifiers) to errors encountered
// trying to get or merge them.
type MultiErr map[string]error

// Error implements the error interface.
func (e MultiErr) Error() string {
	var strs []string
	for key, err := range e {
		strs = append(strs, fmt.Sprintf("%s: %s", key, err))
	}
	return "error(s): " + strings.Join(strs, "; ")
}
