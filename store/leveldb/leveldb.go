// Package leveldb implements a seguid store in an embedded LevelDB database.
package leveldb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
	"github.com/bobg/seguid/store/kv"
	"github.com/bobg/seguid/store/transform"
)

var _ kv.Store = &Store{}

// Store is a LevelDB-based implementation of kv.Store.
// A value's version is the hash of its contents.
// Conditional writes run in a LevelDB transaction,
// which excludes all other writes while it is open.
type Store struct {
	db *leveldb.DB
}

// New produces a new Store using db.
func New(db *leveldb.DB) *Store {
	return &Store{db: db}
}

// Open opens or creates the database in the directory at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return New(db), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func version(val []byte) kv.Version {
	sum := sha256.Sum256(val)
	return kv.Version(hex.EncodeToString(sum[:]))
}

// Get gets the value at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, kv.Version, error) {
	val, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, kv.NoVersion, seguid.ErrNotFound
	}
	if err != nil {
		return nil, kv.NoVersion, errors.Wrapf(err, "getting %s", key)
	}
	return val, version(val), nil
}

// Put stores val at key if the key's current version is prev.
func (s *Store) Put(_ context.Context, key string, val []byte, prev kv.Version) error {
	tr, err := s.db.OpenTransaction()
	if err != nil {
		return errors.Wrap(err, "opening transaction")
	}
	defer tr.Discard()

	cur := kv.NoVersion
	old, err := tr.Get([]byte(key), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		return errors.Wrapf(err, "getting %s", key)
	default:
		cur = version(old)
	}
	if cur != prev {
		return kv.ErrConflict
	}

	if err := tr.Put([]byte(key), val, nil); err != nil {
		return errors.Wrapf(err, "putting %s", key)
	}
	return errors.Wrap(tr.Commit(), "committing transaction")
}

// List produces the keys having the given prefix and sorting after `after`, in lexicographic order.
func (s *Store) List(ctx context.Context, prefix, after string, f func(string) error) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for ok := iter.First(); ok; ok = iter.Next() {
		key := string(iter.Key())
		if key <= after {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(key); err != nil {
			return err
		}
	}
	return errors.Wrap(iter.Error(), "iterating")
}

func init() {
	store.Register("leveldb", func(_ context.Context, conf map[string]interface{}) (seguid.Store, error) {
		path, ok := conf["path"].(string)
		if !ok {
			return nil, errors.New(`missing "path" parameter`)
		}
		s, err := Open(path)
		if err != nil {
			return nil, err
		}
		ts, err := transform.FromConfig(s, conf)
		if err != nil {
			return nil, err
		}
		return kv.NewMap(ts), nil
	})
}
