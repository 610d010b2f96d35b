package file

import (
	"context"
	"os"
	"testing"

	"github.com/bobg/seguid/store"
	"github.com/bobg/seguid/store/kv"
	"github.com/bobg/seguid/testutil"
)

func TestKV(t *testing.T) {
	dirname, err := os.MkdirTemp("", "filestore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	testutil.KV(context.Background(), t, New(dirname))
}

func TestStore(t *testing.T) {
	dirname, err := os.MkdirTemp("", "filestore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	testutil.Conformance(context.Background(), t, kv.NewMap(New(dirname)))
}

func TestCompressedConfig(t *testing.T) {
	dirname, err := os.MkdirTemp("", "filestore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	ctx := context.Background()
	s, err := store.FromConfig(ctx, map[string]interface{}{
		"type":     "file",
		"root":     dirname,
		"compress": "lzw",
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.Conformance(ctx, t, s)
}
