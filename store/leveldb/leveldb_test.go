package leveldb

import (
	"context"
	"testing"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/bobg/seguid/store/kv"
	"github.com/bobg/seguid/testutil"
)

func newMemStore(t *testing.T) *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestKV(t *testing.T) {
	testutil.KV(context.Background(), t, newMemStore(t))
}

func TestStore(t *testing.T) {
	testutil.Conformance(context.Background(), t, kv.NewMap(newMemStore(t)))
}
