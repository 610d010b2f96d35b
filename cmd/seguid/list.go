package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/seguid"
)

func (c maincmd) list(ctx context.Context, start string, withIDs bool, _ []string) error {
	s, err := c.store(ctx)
	if err != nil {
		return err
	}

	return s.ListSeguids(ctx, seguid.FromURL(start), func(fp seguid.Seguid) error {
		if !withIDs {
			fmt.Println(fp)
			return nil
		}
		rec, err := s.Get(ctx, fp)
		if err != nil {
			return errors.Wrapf(err, "getting %s", fp)
		}
		fmt.Printf("%s %v\n", fp, rec.IDs)
		return nil
	})
}
