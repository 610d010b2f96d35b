// Command seguid runs and queries a Seguid mapping service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/ingest"
	"github.com/bobg/seguid/store"
	_ "github.com/bobg/seguid/store/bolt"
	_ "github.com/bobg/seguid/store/file"
	_ "github.com/bobg/seguid/store/gcs"
	_ "github.com/bobg/seguid/store/leveldb"
	"github.com/bobg/seguid/store/logging"
	_ "github.com/bobg/seguid/store/lru"
	_ "github.com/bobg/seguid/store/mem"
	_ "github.com/bobg/seguid/store/pg"
	_ "github.com/bobg/seguid/store/replica"
	_ "github.com/bobg/seguid/store/rpc"
	_ "github.com/bobg/seguid/store/s3"
	_ "github.com/bobg/seguid/store/sqlite3"
)

type maincmd struct {
	config string
	debug  bool
	logger *zap.Logger
}

func main() {
	var (
		config = flag.String("config", "seguidconf.json", "path to store config file")
		debug  = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	var (
		logger *zap.Logger
		err    error
	)
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Creating logger: %s", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := maincmd{config: *config, debug: *debug, logger: logger}
	err = subcmd.Run(ctx, c, flag.Args())
	if err != nil {
		logger.Sync()
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"get": {F: c.get},
		"id":  {F: c.id},
		"ingest": {
			F: c.ingest,
			Params: subcmd.Params(
				"uniprot", subcmd.Bool, false, "input has UniProt-style headers (default: NCBI)",
				"server", subcmd.String, "", "URL of a seguid server (default: write to the configured store)",
				"token", subcmd.String, os.Getenv("SEGUID_TOKEN"), "bearer token for -server",
				"batch", subcmd.Int, ingest.DefaultBatchSize, "sequences per batch",
				"failed", subcmd.Bool, false, "list seguids that failed to insert",
				"retry-delay", subcmd.Duration, ingest.DefaultRetryDelay, "pause before retrying a failed batch",
				"retries", subcmd.Int, ingest.DefaultRetries, "retries per failed batch (0 for none)",
				"exponential", subcmd.Bool, false, "back off exponentially between retries",
			),
		},
		"list": {
			F: c.list,
			Params: subcmd.Params(
				"start", subcmd.String, "", "start after this seguid",
				"ids", subcmd.Bool, false, "also print each seguid's ids",
			),
		},
		"put": {
			F: c.put,
			Params: subcmd.Params(
				"seguid", subcmd.String, "", "seguid to add ids to (default: compute from the sequence on stdin)",
				"ids", subcmd.String, "", "comma-separated ids",
			),
		},
		"serve": {
			F: c.serve,
			Params: subcmd.Params(
				"addr", subcmd.String, "", "HTTP listen address (default: $SEGUID_ADDR or :8080)",
				"grpc-addr", subcmd.String, "", "gRPC listen address (default: $SEGUID_GRPC_ADDR, or no gRPC service)",
				"timeout", subcmd.Duration, time.Duration(0), "bound on the store work of each request (default: $SEGUID_ASYNC_TIMEOUT or 30s)",
			),
		},
		"sync": {
			F: c.sync,
			Params: subcmd.Params(
				"to", subcmd.String, "", "config file of another store (more may follow as arguments)",
			),
		},
		"token": {
			F: c.token,
			Params: subcmd.Params(
				"sub", subcmd.String, "", "subject of the token",
				"ttl", subcmd.Duration, time.Duration(0), "lifetime of the token (default: no expiry)",
			),
		},
	}
}

// store opens the store named by the -config file.
// With -debug, every store operation is logged.
func (c maincmd) store(ctx context.Context) (seguid.Store, error) {
	s, err := storeFromConfig(ctx, c.config)
	if err != nil {
		return nil, err
	}
	if c.debug {
		s = logging.New(s, c.logger)
	}
	return s, nil
}

func storeFromConfig(ctx context.Context, filename string) (seguid.Store, error) {
	var conf map[string]interface{}
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	err = dec.Decode(&conf)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}

	s, err := store.FromConfig(ctx, conf)
	return s, errors.Wrapf(err, "creating store from %s", filename)
}
