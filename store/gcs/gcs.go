// Package gcs implements a seguid store on Google Cloud Storage.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
	"github.com/bobg/seguid/store/kv"
	"github.com/bobg/seguid/store/transform"
)

var _ kv.Store = &Store{}

// Store is a Google Cloud Storage-based implementation of kv.Store.
// Each key is an object name.
// A value's version is its object generation,
// and conditional writes use generation preconditions.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Get gets the value at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, kv.NoVersion, seguid.ErrNotFound
	}
	if err != nil {
		return nil, kv.NoVersion, errors.Wrapf(err, "reading info of object %s", key)
	}
	defer r.Close()

	b := make([]byte, r.Attrs.Size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, kv.NoVersion, errors.Wrapf(err, "reading contents of object %s", key)
	}
	return b, kv.Version(strconv.FormatInt(r.Attrs.Generation, 10)), nil
}

// Put stores val at key if the key's current version is prev.
func (s *Store) Put(ctx context.Context, key string, val []byte, prev kv.Version) error {
	cond := storage.Conditions{DoesNotExist: true}
	if prev != kv.NoVersion {
		gen, err := strconv.ParseInt(string(prev), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "parsing generation %s", prev)
		}
		cond = storage.Conditions{GenerationMatch: gen}
	}

	w := s.bucket.Object(key).If(cond).NewWriter(ctx)
	_, err := w.Write(val)
	if err != nil {
		w.Close()
		return putErr(err, key)
	}
	return putErr(w.Close(), key)
}

func putErr(err error, key string) error {
	if err == nil {
		return nil
	}
	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		return kv.ErrConflict
	}
	return errors.Wrapf(err, "writing object %s", key)
}

// List produces the keys having the given prefix and sorting after `after`, in lexicographic order.
// Cloud Storage lists object names in lexicographic order.
func (s *Store) List(ctx context.Context, prefix, after string, f func(string) error) error {
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		obj, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "listing objects")
		}
		if obj.Name <= after {
			continue
		}
		if err := f(obj.Name); err != nil {
			return err
		}
	}
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		var options []option.ClientOption
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		s, err := transform.FromConfig(New(c.Bucket(bucketName)), conf)
		if err != nil {
			return nil, err
		}
		return kv.NewMap(s), nil
	})
}
