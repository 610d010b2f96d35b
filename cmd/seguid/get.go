package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/seguid"
)

func (c maincmd) get(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("missing seguid")
	}

	var fps []seguid.Seguid
	for _, arg := range args {
		parsed, err := seguid.ParseSeguids(arg)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", arg)
		}
		fps = append(fps, parsed...)
	}

	s, err := c.store(ctx)
	if err != nil {
		return err
	}

	found, _, err := seguid.Lookup(ctx, s, fps)
	if err != nil {
		return errors.Wrap(err, "looking up seguids")
	}
	for _, fp := range fps {
		fmt.Printf("%s %s\n", fp, strings.Join(found[fp], ","))
	}
	return nil
}

func (c maincmd) id(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return errors.New("missing id")
	}

	s, err := c.store(ctx)
	if err != nil {
		return err
	}

	found, _, err := seguid.LookupIDs(ctx, s, ids)
	if err != nil {
		return errors.Wrap(err, "looking up ids")
	}
	for _, id := range ids {
		fmt.Printf("%s %s\n", id, found[id])
	}
	return nil
}
