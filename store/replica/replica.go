// Package replica implements a seguid store that delegates to sets of nested stores.
package replica

import (
	"context"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = (*Store)(nil)

// Store is a seguid store that delegates reads and writes to two sets of nested stores.
// One set is synchronous:
// merges into all of these must succeed before a call to Merge returns,
// and an error from any will cause Merge to fail.
// The other set is asynchronous:
// a call to Merge queues merges on these stores but does not wait for them to finish.
// However, if any asynchronous merge encounters an error,
// the whole Store is put into an error state and further operations will fail.
type Store struct {
	sync   []seguid.Store
	async  []asyncChans
	cancel context.CancelFunc

	mu  sync.Mutex // protects err
	err error      // the error from an async goroutine, if any
}

type asyncChans struct {
	pairs chan<- seguid.Pair
	errs  <-chan error
}

// New produces a new Store.
// The set of synchronous stores must be non-empty.
// The set of asynchronous stores may be empty.
// If there are any asynchronous stores,
// goroutines are launched for them,
// and canceling the given context object causes those to exit,
// placing the Store in an error state.
//
// The queue for each asynchronous store has length n,
// which must be 1 or greater.
// If any async store falls too far behind,
// Merge blocks until its request can be queued.
func New(ctx context.Context, sync []seguid.Store, async []seguid.Store, n int) *Store {
	result := &Store{sync: sync}

	if len(async) > 0 {
		ctx, result.cancel = context.WithCancel(ctx)

		selectCases := make([]reflect.SelectCase, 1+len(async))

		for i, a := range async {
			var (
				pairs = make(chan seguid.Pair, n)
				errs  = make(chan error, 1)
			)

			result.async = append(result.async, asyncChans{pairs: pairs, errs: errs})

			selectCases[i].Dir = reflect.SelectRecv
			selectCases[i].Chan = reflect.ValueOf(errs)

			go runAsync(ctx, a, pairs, errs)
		}

		selectCases[len(async)].Dir = reflect.SelectRecv
		selectCases[len(async)].Chan = reflect.ValueOf(ctx.Done())

		go func() {
			chosen, errval, ok := reflect.Select(selectCases)
			if !ok || chosen == len(async) {
				return
			}
			result.cancel()
			result.mu.Lock()
			result.err = errval.Interface().(error)
			result.mu.Unlock()
		}()
	}

	return result
}

// Runs as a goroutine until ctx is canceled or an error occurs (which it writes to errs).
func runAsync(ctx context.Context, s seguid.Store, pairs <-chan seguid.Pair, errs chan<- error) {
	defer close(errs)

	for {
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return

		case pair := <-pairs:
			_, err := s.Merge(ctx, pair.Seguid, pair.IDs)
			if err != nil {
				errs <- errors.Wrapf(err, "merging %s", pair.Seguid)
				return
			}
		}
	}
}

// Merge implements seguid.Store.Merge.
// The identifiers are merged into all synchronous nested stores.
// An error from any of them causes Merge to return an error.
//
// The nested stores may disagree about the outcome,
// if some already had some of the identifiers.
// The one reported is that of the first synchronous store.
//
// A request to merge is queued for any asynchronous nested stores.
func (s *Store) Merge(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	if err := s.checkErr(); err != nil {
		return seguid.Unchanged, errors.Wrap(err, "in async-store goroutine")
	}

	outcomes := make([]seguid.Outcome, len(s.sync))

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range s.sync {
		i, st := i, st
		g.Go(func() error {
			outcome, err := st.Merge(gctx, fp, ids)
			outcomes[i] = outcome
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return seguid.Unchanged, err
	}

	pair := seguid.Pair{Seguid: fp, IDs: append([]string{}, ids...)}
	for _, a := range s.async {
		select {
		case <-ctx.Done():
			return seguid.Unchanged, ctx.Err()

		case a.pairs <- pair:
		}
	}

	return outcomes[0], nil
}

// Get implements seguid.Getter.
// It delegates the request to all of the synchronous stores in s,
// returning the result from the first one to respond without error
// and canceling the request to the others.
// If all synchronous stores respond with an error,
// one of those errors is returned.
func (s *Store) Get(ctx context.Context, fp seguid.Seguid) (seguid.Record, error) {
	return s.first(ctx, func(ctx context.Context, st seguid.Store) (seguid.Record, error) {
		return st.Get(ctx, fp)
	})
}

// ByID implements seguid.Getter.
// It works like Get.
// If the synchronous stores disagree about which record first gained id,
// the answer may come from any of them.
func (s *Store) ByID(ctx context.Context, id string) (seguid.Record, error) {
	return s.first(ctx, func(ctx context.Context, st seguid.Store) (seguid.Record, error) {
		return st.ByID(ctx, id)
	})
}

func (s *Store) first(ctx context.Context, get func(context.Context, seguid.Store) (seguid.Record, error)) (seguid.Record, error) {
	if err := s.checkErr(); err != nil {
		return seguid.Record{}, errors.Wrap(err, "in async-store goroutine")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		rec seguid.Record
		err error
	}

	ch := make(chan result, len(s.sync))
	for _, st := range s.sync {
		st := st
		go func() {
			rec, err := get(ctx, st)
			ch <- result{rec: rec, err: err}
		}()
	}

	var err error
	for range s.sync {
		res := <-ch
		if res.err == nil {
			return res.rec, nil
		}
		if err == nil || errors.Is(err, seguid.ErrNotFound) {
			err = res.err
		}
	}
	return seguid.Record{}, err
}

// ListSeguids implements seguid.Getter.
// It delegates the request to all of the synchronous stores in s
// and synthesizes the result from the union of their Seguids.
func (s *Store) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	if err := s.checkErr(); err != nil {
		return errors.Wrap(err, "in async-store goroutine")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	chans := make([]chan seguid.Seguid, len(s.sync))
	for i, st := range s.sync {
		i, st := i, st
		chans[i] = make(chan seguid.Seguid, 1)
		g.Go(func() error {
			defer close(chans[i])
			return st.ListSeguids(gctx, start, func(fp seguid.Seguid) error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case chans[i] <- fp:
					return nil
				}
			})
		})
	}

	type head struct {
		fp seguid.Seguid
		ok bool
	}

	heads := make([]head, len(chans))
	for i, ch := range chans {
		fp, ok := <-ch
		heads[i] = head{fp: fp, ok: ok}
	}

	for {
		best := -1
		for i, h := range heads {
			if h.ok && (best < 0 || h.fp < heads[best].fp) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		fp := heads[best].fp
		if err := f(fp); err != nil {
			return err
		}
		for i := range heads {
			for heads[i].ok && heads[i].fp == fp {
				next, ok := <-chans[i]
				heads[i] = head{fp: next, ok: ok}
			}
		}
	}

	return g.Wait()
}

func (s *Store) checkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func init() {
	store.Register("replica", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		syncStores, err := nestedList(ctx, conf, "sync")
		if err != nil {
			return nil, err
		}
		if len(syncStores) == 0 {
			return nil, errors.New(`missing "sync" parameter`)
		}
		asyncStores, err := nestedList(ctx, conf, "async")
		if err != nil {
			return nil, err
		}

		queueLen, ok := store.IntParam(conf, "queuelen")
		if !ok || queueLen < 1 {
			queueLen = 10
		}

		return New(ctx, syncStores, asyncStores, queueLen), nil
	})
}

func nestedList(ctx context.Context, conf map[string]interface{}, key string) ([]seguid.Store, error) {
	items, _ := conf[key].([]interface{})

	var result []seguid.Store
	for i, item := range items {
		nested, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("%q item %d is not an object", key, i)
		}
		s, err := store.FromConfig(ctx, nested)
		if err != nil {
			return nil, errors.Wrapf(err, "creating nested %s store %d", key, i)
		}
		result = append(result, s)
	}
	return result, nil
}
