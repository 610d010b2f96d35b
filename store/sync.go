package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/seguid"
)

// Sync synchronizes two or more stores.
// It runs ListSeguids on all input stores.
// When a Seguid is found in any store,
// the union of its identifiers in all the stores having it
// is merged into every store.
// Afterwards every store has the same Seguids with the same identifiers.
//
// Sync tells nothing about the order in which identifiers were first recorded,
// so reverse lookups of an identifier recorded under more than one Seguid
// may resolve differently in different stores.
func Sync(ctx context.Context, stores []seguid.Store) error {
	if len(stores) < 2 {
		return nil
	}

	type tuple struct {
		s  seguid.Store
		ch <-chan seguid.Seguid
		fp *seguid.Seguid
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx2 := errgroup.WithContext(ctx)

	tuples := make([]*tuple, 0, len(stores))
	for _, s := range stores {
		s := s
		ch := make(chan seguid.Seguid)
		eg.Go(func() error {
			defer close(ch)
			return s.ListSeguids(ctx2, "", func(fp seguid.Seguid) error {
				select {
				case <-ctx2.Done():
					return ctx2.Err()
				case ch <- fp:
				}
				return nil
			})
		})
		tuples = append(tuples, &tuple{s: s, ch: ch})
	}

	errch := make(chan error, 1)
	go func() {
		errch <- eg.Wait()
	}()

	// Set to nil once the listing goroutines have all succeeded.
	waitch := errch

	next := func(tup *tuple) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-waitch:
				if err != nil {
					return err
				}
				waitch = nil
			case fp, ok := <-tup.ch:
				if ok {
					tup.fp = &fp
				} else {
					tup.fp = nil
				}
				return nil
			}
		}
	}

	havers := tuples
	for {
		for _, tup := range havers {
			if err := next(tup); err != nil {
				return err
			}
		}

		sort.Slice(tuples, func(i, j int) bool {
			fi := tuples[i].fp
			fj := tuples[j].fp
			if fi != nil {
				if fj != nil {
					return *fi < *fj
				}
				return true
			}
			return false
		})

		if tuples[0].fp == nil {
			// We've reached the end of input on all channels.
			if waitch != nil {
				return <-waitch
			}
			return nil
		}

		fp := *(tuples[0].fp)

		havers = []*tuple{tuples[0]}
		i := 1
		for i < len(tuples) && tuples[i].fp != nil && *(tuples[i].fp) == fp {
			havers = append(havers, tuples[i])
			i++
		}

		haverStores := make([]seguid.Store, 0, len(havers))
		for _, tup := range havers {
			haverStores = append(haverStores, tup.s)
		}
		if err := syncOne(ctx, fp, haverStores, stores); err != nil {
			return err
		}
	}
}

// syncOne merges the union of fp's identifiers in havers into every store in all.
func syncOne(ctx context.Context, fp seguid.Seguid, havers, all []seguid.Store) error {
	recs := make([]seguid.Record, len(havers))

	eg, ctx2 := errgroup.WithContext(ctx)
	for i, s := range havers {
		i, s := i, s
		eg.Go(func() error {
			rec, err := s.Get(ctx2, fp)
			recs[i] = rec
			return errors.Wrapf(err, "getting record for %s", fp)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	var ids []string
	for _, rec := range recs {
		ids, _ = seguid.Union(ids, rec.IDs)
	}

	eg, ctx2 = errgroup.WithContext(ctx)
	for _, s := range all {
		s := s
		eg.Go(func() error {
			_, err := s.Merge(ctx2, fp, ids)
			return errors.Wrapf(err, "storing record for %s", fp)
		})
	}
	return eg.Wait()
}
