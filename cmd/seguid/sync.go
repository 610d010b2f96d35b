package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

func (c maincmd) sync(ctx context.Context, first string, args []string) error {
	var to []string
	if first != "" {
		to = append(to, first)
	}
	to = append(to, args...)
	if len(to) == 0 {
		return errors.New("no other store")
	}

	s, err := c.store(ctx)
	if err != nil {
		return err
	}

	stores := []seguid.Store{s}
	for _, conf := range to {
		other, err := storeFromConfig(ctx, conf)
		if err != nil {
			return errors.Wrapf(err, "reading %s", conf)
		}
		stores = append(stores, other)
	}

	return store.Sync(ctx, stores)
}
