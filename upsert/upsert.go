// Package upsert applies batches of submissions to a seguid store
// and reports the outcome of each.
package upsert

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bobg/seguid"
)

// ErrUnauthorized is the error returned
// for a batch containing a FingerprintSubmission
// from a caller that is not authorized to submit one.
var ErrUnauthorized = errors.New("unauthorized")

// Status summarizes a Result.
type Status int

const (
	// Failure means no submission succeeded,
	// including when there were none.
	Failure Status = iota

	// PartialSuccess means some submissions succeeded and some failed.
	PartialSuccess

	// Success means at least one submission succeeded and none failed.
	Success
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case PartialSuccess:
		return "partial success"
	}
	return "failure"
}

// Result is the outcome of a batch.
// Each distinct Seguid of the batch appears in exactly one of the four lists,
// in order of first occurrence in the batch.
type Result struct {
	Created   []seguid.Seguid
	Updated   []seguid.Seguid
	Unchanged []seguid.Seguid
	Failed    []seguid.Seguid
	Status    Status
}

// Succeeded is the number of Seguids that did not fail.
func (r Result) Succeeded() int {
	return len(r.Created) + len(r.Updated) + len(r.Unchanged)
}

type wireResult struct {
	Created   []seguid.Seguid `json:"created"`
	Updated   []seguid.Seguid `json:"updated"`
	Unchanged []seguid.Seguid `json:"unchanged"`
	Failed    []seguid.Seguid `json:"failed"`
	Result    string          `json:"result"`
}

func nonNil(s []seguid.Seguid) []seguid.Seguid {
	if s == nil {
		return []seguid.Seguid{}
	}
	return s
}

// MarshalJSON implements json.Marshaler.
// Every list is present, even when empty.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResult{
		Created:   nonNil(r.Created),
		Updated:   nonNil(r.Updated),
		Unchanged: nonNil(r.Unchanged),
		Failed:    nonNil(r.Failed),
		Result:    r.Status.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{Created: w.Created, Updated: w.Updated, Unchanged: w.Unchanged, Failed: w.Failed}
	switch w.Result {
	case "success":
		r.Status = Success
	case "partial success":
		r.Status = PartialSuccess
	case "failure":
		r.Status = Failure
	default:
		return errors.Errorf("unknown result %q", w.Result)
	}
	return nil
}

// Coordinator applies batches to a store.
type Coordinator struct {
	Store  seguid.Store
	Logger *zap.Logger
}

// New produces a Coordinator for s.
func New(s seguid.Store, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{Store: s, Logger: logger}
}

// Submit applies subs as an authorized caller.
func (c *Coordinator) Submit(ctx context.Context, subs []Submission) (Result, error) {
	return c.Upsert(ctx, subs, true)
}

// Upsert applies subs to the store.
//
// Every submission is validated before any is processed.
// A malformed submission fails the whole call with ErrMalformed,
// and a FingerprintSubmission without authorization fails it with ErrUnauthorized.
//
// Submissions resolving to the same Seguid are combined into one merge.
// Merges of distinct Seguids run concurrently.
// A failed merge is reported in Result.Failed and does not affect the others.
func (c *Coordinator) Upsert(ctx context.Context, subs []Submission, authorized bool) (Result, error) {
	if err := Validate(subs); err != nil {
		return Result{}, err
	}
	if !authorized && NeedsAuth(subs) {
		return Result{}, ErrUnauthorized
	}

	var (
		order []seguid.Seguid
		ids   = make(map[seguid.Seguid][]string)
	)
	for _, sub := range subs {
		fp := sub.Resolve()
		have, ok := ids[fp]
		if !ok {
			order = append(order, fp)
		}
		ids[fp], _ = seguid.Union(have, sub.Identifiers())
	}

	pairs := make([]seguid.Pair, 0, len(order))
	for _, fp := range order {
		pairs = append(pairs, seguid.Pair{Seguid: fp, IDs: ids[fp]})
	}

	outcomes, err := seguid.MergeMulti(ctx, c.Store, pairs)
	var merr seguid.MultiErr
	if err != nil && !errors.As(err, &merr) {
		return Result{}, errors.Wrap(err, "merging")
	}

	var res Result
	for _, fp := range order {
		if err, ok := merr[string(fp)]; ok {
			c.Logger.Error("merge failed", zap.Stringer("seguid", fp), zap.Error(err))
			res.Failed = append(res.Failed, fp)
			continue
		}
		switch outcomes[fp] {
		case seguid.Created:
			res.Created = append(res.Created, fp)
		case seguid.Updated:
			res.Updated = append(res.Updated, fp)
		default:
			res.Unchanged = append(res.Unchanged, fp)
		}
	}

	switch {
	case res.Succeeded() == 0:
		res.Status = Failure
	case len(res.Failed) > 0:
		res.Status = PartialSuccess
	default:
		res.Status = Success
	}

	c.Logger.Debug("upsert",
		zap.Int("submissions", len(subs)),
		zap.Int("created", len(res.Created)),
		zap.Int("updated", len(res.Updated)),
		zap.Int("unchanged", len(res.Unchanged)),
		zap.Int("failed", len(res.Failed)),
	)

	return res, nil
}
