// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = &Store{}

type Store struct {
	s   seguid.Store
	log *zap.Logger
}

func New(s seguid.Store, log *zap.Logger) *Store {
	return &Store{s: s, log: log}
}

func (s *Store) Get(ctx context.Context, fp seguid.Seguid) (seguid.Record, error) {
	rec, err := s.s.Get(ctx, fp)
	if err != nil {
		s.log.Check(errLevel(err), "Get").Write(zap.Stringer("seguid", fp), zap.Error(err))
	} else {
		s.log.Debug("Get", zap.Stringer("seguid", fp), zap.Int("ids", len(rec.IDs)))
	}
	return rec, err
}

func (s *Store) ByID(ctx context.Context, id string) (seguid.Record, error) {
	rec, err := s.s.ByID(ctx, id)
	if err != nil {
		s.log.Check(errLevel(err), "ByID").Write(zap.String("id", id), zap.Error(err))
	} else {
		s.log.Debug("ByID", zap.String("id", id), zap.Stringer("seguid", rec.Seguid))
	}
	return rec, err
}

func (s *Store) Merge(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	outcome, err := s.s.Merge(ctx, fp, ids)
	if err != nil {
		s.log.Error("Merge", zap.Stringer("seguid", fp), zap.Strings("ids", ids), zap.Error(err))
	} else {
		s.log.Debug("Merge", zap.Stringer("seguid", fp), zap.Strings("ids", ids), zap.Stringer("outcome", outcome))
	}
	return outcome, err
}

func (s *Store) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	s.log.Debug("ListSeguids", zap.Stringer("start", start))
	return s.s.ListSeguids(ctx, start, func(fp seguid.Seguid) error {
		err := f(fp)
		if err != nil {
			s.log.Error("in ListSeguids", zap.Stringer("seguid", fp), zap.Error(err))
		} else {
			s.log.Debug("ListSeguids", zap.Stringer("seguid", fp))
		}
		return err
	})
}

// errLevel logs lookup misses at debug level.
func errLevel(err error) zapcore.Level {
	if errors.Is(err, seguid.ErrNotFound) {
		return zapcore.DebugLevel
	}
	return zapcore.ErrorLevel
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		nestedStore, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		log, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		return New(nestedStore, log), nil
	})
}
