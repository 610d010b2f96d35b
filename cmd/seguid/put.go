package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/upsert"
)

func (c maincmd) put(ctx context.Context, fp, idsStr string, _ []string) error {
	ids, err := seguid.ParseIDs(idsStr)
	if err != nil {
		return errors.Wrap(err, "parsing -ids")
	}

	var sub upsert.Submission
	if fp != "" {
		sub = upsert.FingerprintSubmission{Seguid: fp, IDs: ids}
	} else {
		seq, err := io.ReadAll(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "reading stdin")
		}
		sub = upsert.SequenceSubmission{Seq: strings.TrimSpace(string(seq)), IDs: ids}
	}

	s, err := c.store(ctx)
	if err != nil {
		return err
	}

	res, err := upsert.New(s, c.logger).Submit(ctx, []upsert.Submission{sub})
	if err != nil {
		return errors.Wrap(err, "storing")
	}
	if res.Status == upsert.Failure {
		return fmt.Errorf("storing %s failed", sub.Resolve())
	}

	switch {
	case len(res.Created) > 0:
		fmt.Printf("%s created\n", res.Created[0])
	case len(res.Updated) > 0:
		fmt.Printf("%s updated\n", res.Updated[0])
	default:
		fmt.Printf("%s unchanged\n", res.Unchanged[0])
	}
	return nil
}
