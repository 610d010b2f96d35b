package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/seguid/httpapi"
)

func (c maincmd) token(_ context.Context, sub string, ttl time.Duration, _ []string) error {
	if sub == "" {
		return errors.New("missing -sub")
	}

	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	if cfg.JWTKey == "" {
		return errors.New("SEGUID_JWT_KEY not set")
	}

	tok, err := httpapi.NewAuthorizer([]byte(cfg.JWTKey)).Token(sub, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
