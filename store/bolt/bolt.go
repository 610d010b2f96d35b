// Package bolt implements a seguid store in a single-file bbolt database.
package bolt

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = &Store{}

var (
	recordsBucket = []byte("records") // seguid -> marshaled Record
	idsBucket     = []byte("ids")     // id -> seguid of its first record
)

// Store is a bbolt-based seguid store.
// Bbolt admits one read-write transaction at a time,
// which makes each Merge atomic.
type Store struct {
	db *bolt.DB
}

// New opens or creates the database at path.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(idsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get gets the record for fp.
func (s *Store) Get(_ context.Context, fp seguid.Seguid) (seguid.Record, error) {
	var rec seguid.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = txGet(tx, fp)
		return err
	})
	return rec, err
}

func txGet(tx *bolt.Tx, fp seguid.Seguid) (seguid.Record, error) {
	val := tx.Bucket(recordsBucket).Get([]byte(fp))
	if val == nil {
		return seguid.Record{}, seguid.ErrNotFound
	}
	var rec seguid.Record
	err := rec.UnmarshalBinary(val)
	return rec, errors.Wrapf(err, "decoding %s", fp)
}

// ByID gets the record that first recorded id.
func (s *Store) ByID(_ context.Context, id string) (seguid.Record, error) {
	var rec seguid.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		fp := tx.Bucket(idsBucket).Get([]byte(id))
		if fp == nil {
			return seguid.ErrNotFound
		}
		var err error
		rec, err = txGet(tx, seguid.Seguid(fp))
		return err
	})
	return rec, err
}

// Merge adds ids to the record for fp.
func (s *Store) Merge(_ context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	var outcome seguid.Outcome
	err := s.db.Update(func(tx *bolt.Tx) error {
		rec, err := txGet(tx, fp)
		exists := err == nil
		if err != nil && !errors.Is(err, seguid.ErrNotFound) {
			return err
		}

		merged, added := seguid.Union(rec.IDs, ids)
		switch {
		case !exists:
			outcome = seguid.Created
		case added > 0:
			outcome = seguid.Updated
		default:
			return nil
		}

		val, err := seguid.Record{Seguid: fp, IDs: merged}.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "encoding %s", fp)
		}
		if err := tx.Bucket(recordsBucket).Put([]byte(fp), val); err != nil {
			return errors.Wrapf(err, "storing %s", fp)
		}

		idb := tx.Bucket(idsBucket)
		for _, id := range ids {
			if idb.Get([]byte(id)) != nil {
				continue
			}
			if err := idb.Put([]byte(id), []byte(fp)); err != nil {
				return errors.Wrapf(err, "indexing %s", id)
			}
		}
		return nil
	})
	return outcome, err
}

// ListSeguids produces all Seguids in the store, in lexicographic order.
// The listing is a snapshot taken before f is first called,
// so f may use the store.
func (s *Store) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	var fps []seguid.Seguid
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		k, _ := c.Seek([]byte(start))
		if k != nil && bytes.Equal(k, []byte(start)) {
			k, _ = c.Next()
		}
		for ; k != nil; k, _ = c.Next() {
			fps = append(fps, seguid.Seguid(k))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "listing seguids")
	}
	for _, fp := range fps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(fp); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("bolt", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		path, ok := conf["path"].(string)
		if !ok {
			return nil, errors.New(`missing "path" parameter`)
		}
		return New(path)
	})
}
