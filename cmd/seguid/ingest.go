package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/bobg/seguid/fasta"
	"github.com/bobg/seguid/httpapi"
	"github.com/bobg/seguid/ingest"
	"github.com/bobg/seguid/upsert"
)

func (c maincmd) ingest(ctx context.Context, uniprot bool, server, token string, batch int, listFailed bool, retryDelay time.Duration, retries int, exponential bool, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: ingest [flags] FILE")
	}

	var sub ingest.Submitter
	if server != "" {
		sub = httpapi.NewClient(server, token)
	} else {
		s, err := c.store(ctx)
		if err != nil {
			return err
		}
		sub = upsert.New(s, c.logger)
	}

	opts := ingest.Options{
		BatchSize:  batch,
		RetryDelay: retryDelay,
		Retries:    retries,
		Logger:     c.logger,
	}
	if retries == 0 {
		opts.Retries = ingest.NoRetry
	}
	if uniprot {
		opts.Dialect = fasta.UniProt
	}
	if exponential {
		opts.Backoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retryDelay
			return backoff.WithMaxRetries(b, uint64(retries))
		}
	}

	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrapf(err, "opening %s", args[0])
	}
	defer f.Close()

	tally, err := ingest.New(sub, opts).Load(ctx, f)
	if err != nil {
		return errors.Wrapf(err, "loading %s", args[0])
	}

	if listFailed && len(tally.FailedSeguids) > 0 {
		fmt.Fprintln(os.Stderr, "# Failed to insert:")
		for _, fp := range tally.FailedSeguids {
			fmt.Fprintln(os.Stderr, fp)
		}
	}
	fmt.Fprintf(os.Stderr, "# Created: %d\n# Updated: %d\n# Unchanged: %d\n# Failed: %d\n", tally.Created, tally.Updated, tally.Unchanged, tally.Failed)
	if tally.Skipped > 0 {
		fmt.Fprintf(os.Stderr, "# Skipped: %d\n", tally.Skipped)
	}
	return nil
}
