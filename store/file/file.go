// Package file implements a seguid store as a directory of files,
// one per key.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
	"github.com/bobg/seguid/store/kv"
	"github.com/bobg/seguid/store/transform"
)

var _ kv.Store = &Store{}

// Store is a file-based implementation of kv.Store.
// Each key is stored in a file named by the hex encoding of the key,
// which sorts in the same order as the keys themselves.
//
// A value's version is the hash of its contents.
// Writes are serialized within the process by a mutex
// and across processes by a lock file beside each value.
type Store struct {
	root    string
	mu      sync.Mutex
	flocker flock.Locker
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) keypath(key string) string {
	return filepath.Join(s.root, hex.EncodeToString([]byte(key)))
}

func version(val []byte) kv.Version {
	sum := sha256.Sum256(val)
	return kv.Version(hex.EncodeToString(sum[:]))
}

// Get gets the value at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, kv.Version, error) {
	path := s.keypath(key)
	val, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, kv.NoVersion, seguid.ErrNotFound
	}
	if err != nil {
		return nil, kv.NoVersion, errors.Wrapf(err, "reading %s", path)
	}
	return val, version(val), nil
}

// Put stores val at key if the key's current version is prev.
func (s *Store) Put(ctx context.Context, key string, val []byte, prev kv.Version) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return errors.Wrapf(err, "ensuring %s exists", s.root)
	}

	path := s.keypath(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	lockpath := path + ".lock"
	lf, err := os.OpenFile(lockpath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "creating %s", lockpath)
	}
	lf.Close()

	if err := s.flocker.Lock(lockpath); err != nil {
		return errors.Wrapf(err, "locking %s", lockpath)
	}
	defer s.flocker.Unlock(lockpath)

	_, cur, err := s.Get(ctx, key)
	if err != nil && !errors.Is(err, seguid.ErrNotFound) {
		return err
	}
	if cur != prev {
		return kv.ErrConflict
	}

	f, err := os.CreateTemp(s.root, "tmp-")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpname := f.Name()
	defer os.Remove(tmpname)

	_, err = f.Write(val)
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", tmpname)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmpname)
	}

	return errors.Wrapf(os.Rename(tmpname, path), "renaming %s to %s", tmpname, path)
}

// List produces the keys having the given prefix and sorting after `after`, in lexicographic order.
func (s *Store) List(ctx context.Context, prefix, after string, f func(string) error) error {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", s.root)
	}

	// Entries are sorted by filename, which is also key order.
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".lock") || strings.HasPrefix(name, "tmp-") {
			continue
		}
		b, err := hex.DecodeString(name)
		if err != nil {
			continue
		}
		key := string(b)
		if !strings.HasPrefix(key, prefix) || key <= after {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(key); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (seguid.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		s, err := transform.FromConfig(New(root), conf)
		if err != nil {
			return nil, err
		}
		return kv.NewMap(s), nil
	})
}
