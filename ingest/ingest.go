// Package ingest loads FASTA files into a Seguid store in fixed-size batches.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/fasta"
	"github.com/bobg/seguid/upsert"
)

// Submitter applies a batch of submissions.
// Both *upsert.Coordinator and *httpapi.Client are Submitters.
type Submitter interface {
	Submit(context.Context, []upsert.Submission) (upsert.Result, error)
}

const (
	// DefaultBatchSize is the number of sequences per batch when none is given.
	DefaultBatchSize = 500

	// DefaultRetryDelay is the pause before retrying a failed batch.
	DefaultRetryDelay = 5 * time.Second

	// DefaultRetries is how many times a failed batch is retried.
	DefaultRetries = 1

	// NoRetry, as Options.Retries, disables retrying.
	NoRetry = -1
)

// Options controls a Loader.
type Options struct {
	Dialect   fasta.Dialect
	BatchSize int

	// RetryDelay and Retries give the constant retry policy.
	// They are ignored when Backoff is set.
	// A zero Retries means DefaultRetries; use NoRetry for none.
	RetryDelay time.Duration
	Retries    int

	// Backoff, if set, produces the retry policy for each batch.
	Backoff func() backoff.BackOff

	Logger *zap.Logger
}

// Tally is the outcome of a Load.
type Tally struct {
	Batches   int
	Created   int
	Updated   int
	Unchanged int
	Failed    int

	// Skipped counts records whose headers yielded no identifiers.
	Skipped int

	// FailedSeguids lists the Seguids counted in Failed, in input order.
	FailedSeguids []seguid.Seguid
}

func (t *Tally) add(res upsert.Result) {
	t.Created += len(res.Created)
	t.Updated += len(res.Updated)
	t.Unchanged += len(res.Unchanged)
	t.Failed += len(res.Failed)
	t.FailedSeguids = append(t.FailedSeguids, res.Failed...)
}

// Loader sends FASTA records to a Submitter.
type Loader struct {
	sub  Submitter
	opts Options
}

// New produces a new Loader.
// Zero values in opts are replaced with defaults.
func New(sub Submitter, opts Options) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	switch {
	case opts.Retries == 0:
		opts.Retries = DefaultRetries
	case opts.Retries < 0:
		opts.Retries = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Loader{sub: sub, opts: opts}
}

// Load reads FASTA records from r and submits them in batches.
// Batches are submitted one at a time, in order.
// A batch whose submission fails is retried according to the retry policy.
// If it still fails, every Seguid in it is counted as failed and loading continues.
//
// The error result is for problems reading r and for context cancellation.
// The Tally reflects the batches processed before any such error.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Tally, error) {
	var (
		tally Tally
		batch []upsert.SequenceSubmission
		start int
		fr    = fasta.NewReader(r)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := l.submit(ctx, &tally, batch, start)
		start += len(batch)
		batch = batch[:0]
		return err
	}

	for {
		rec, err := fr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return tally, errors.Wrap(err, "reading FASTA")
		}
		ids := fasta.IDs(fasta.ParseHeader(rec.Header, l.opts.Dialect))
		if len(ids) == 0 {
			l.opts.Logger.Warn("skipping record with no identifiers", zap.String("header", rec.Header))
			tally.Skipped++
			continue
		}
		batch = append(batch, upsert.SequenceSubmission{Seq: rec.Seq, IDs: ids})
		if len(batch) >= l.opts.BatchSize {
			if err := flush(); err != nil {
				return tally, err
			}
		}
	}
	if err := flush(); err != nil {
		return tally, err
	}

	l.opts.Logger.Info("done")
	return tally, nil
}

func (l *Loader) submit(ctx context.Context, tally *Tally, batch []upsert.SequenceSubmission, start int) error {
	end := start + len(batch)
	l.opts.Logger.Info("inserting sequences " + progress(batch, start, end))

	subs := make([]upsert.Submission, 0, len(batch))
	for _, s := range batch {
		subs = append(subs, s)
	}

	tally.Batches++

	var (
		res     upsert.Result
		attempt int
	)
	err := backoff.Retry(
		func() error {
			if attempt > 0 {
				l.opts.Logger.Warn("insert failed, retrying", zap.Int("attempt", attempt))
			}
			attempt++

			var err error
			res, err = l.sub.Submit(ctx, subs)
			if errors.Is(err, seguid.ErrMalformed) || errors.Is(err, upsert.ErrUnauthorized) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(l.policy(), ctx),
	)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err != nil {
		l.opts.Logger.Error("batch failed", zap.Int("start", start), zap.Int("end", end), zap.Error(err))
		for _, s := range batch {
			fp := s.Resolve()
			tally.Failed++
			tally.FailedSeguids = append(tally.FailedSeguids, fp)
		}
		return nil
	}

	tally.add(res)
	return nil
}

func (l *Loader) policy() backoff.BackOff {
	if l.opts.Backoff != nil {
		return l.opts.Backoff()
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(l.opts.RetryDelay), uint64(l.opts.Retries))
}

// progress renders "i (first id) to j (last id)" for a batch.
func progress(batch []upsert.SequenceSubmission, start, end int) string {
	first, last := batch[0].IDs[0], batch[len(batch)-1].IDs[0]
	return fmt.Sprintf("%d (%s) to %d (%s)", start, first, end, last)
}
