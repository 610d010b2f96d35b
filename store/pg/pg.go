// Package pg implements a seguid store in a Postgresql database.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = &Store{}

// Store is a Postgresql-based seguid store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `seguids` and `seguid_ids` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
//
// Seguids use the "C" collation so that listing order is byte order.
const Schema = `
CREATE TABLE IF NOT EXISTS seguids (
  seguid TEXT COLLATE "C" PRIMARY KEY NOT NULL
);

CREATE TABLE IF NOT EXISTS seguid_ids (
  seq BIGSERIAL PRIMARY KEY,
  seguid TEXT COLLATE "C" NOT NULL REFERENCES seguids (seguid),
  id TEXT NOT NULL,
  UNIQUE (seguid, id)
);

CREATE INDEX IF NOT EXISTS seguid_ids_id_idx ON seguid_ids (id, seq);
`

// New produces a new Store using `db` for storage.
// It expects to create tables `seguids` and `seguid_ids`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Get gets the record for fp.
func (s *Store) Get(ctx context.Context, fp seguid.Seguid) (seguid.Record, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM seguids WHERE seguid = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, q, string(fp)).Scan(&exists); err != nil {
		return seguid.Record{}, errors.Wrapf(err, "getting %s", fp)
	}
	if !exists {
		return seguid.Record{}, seguid.ErrNotFound
	}

	const q2 = `SELECT id FROM seguid_ids WHERE seguid = $1 ORDER BY id`

	rec := seguid.Record{Seguid: fp, IDs: []string{}}
	err := sqlutil.ForQueryRows(ctx, s.db, q2, string(fp), func(id string) {
		rec.IDs = append(rec.IDs, id)
	})
	return rec, errors.Wrapf(err, "querying ids of %s", fp)
}

// ByID gets the record that first recorded id.
func (s *Store) ByID(ctx context.Context, id string) (seguid.Record, error) {
	const q = `SELECT seguid FROM seguid_ids WHERE id = $1 ORDER BY seq LIMIT 1`

	var fp string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&fp)
	if stderrs.Is(err, sql.ErrNoRows) {
		return seguid.Record{}, seguid.ErrNotFound
	}
	if err != nil {
		return seguid.Record{}, errors.Wrapf(err, "looking up %s", id)
	}
	return s.Get(ctx, seguid.Seguid(fp))
}

// Merge adds ids to the record for fp in a single transaction.
// Concurrent merges of the same seguid serialize on its row.
func (s *Store) Merge(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return seguid.Unchanged, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	const q = `INSERT INTO seguids (seguid) VALUES ($1) ON CONFLICT DO NOTHING`

	res, err := tx.ExecContext(ctx, q, string(fp))
	if err != nil {
		return seguid.Unchanged, errors.Wrapf(err, "inserting %s", fp)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return seguid.Unchanged, errors.Wrap(err, "counting affected rows")
	}
	created := aff > 0

	const q2 = `INSERT INTO seguid_ids (seguid, id) SELECT $1, unnest($2::TEXT[]) ON CONFLICT DO NOTHING`

	var added int64
	if len(ids) > 0 {
		res, err = tx.ExecContext(ctx, q2, string(fp), pq.Array(ids))
		if err != nil {
			return seguid.Unchanged, errors.Wrapf(err, "adding ids to %s", fp)
		}
		added, err = res.RowsAffected()
		if err != nil {
			return seguid.Unchanged, errors.Wrap(err, "counting affected rows")
		}
	}

	if err := tx.Commit(); err != nil {
		return seguid.Unchanged, errors.Wrap(err, "committing transaction")
	}

	switch {
	case created:
		return seguid.Created, nil
	case added > 0:
		return seguid.Updated, nil
	}
	return seguid.Unchanged, nil
}

// ListSeguids produces all Seguids in the store, in lexicographic order.
func (s *Store) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	const q = `SELECT seguid FROM seguids WHERE seguid > $1 ORDER BY seguid`
	return sqlutil.ForQueryRows(ctx, s.db, q, string(start), func(fp string) error {
		return f(seguid.Seguid(fp))
	})
}

func init() {
	store.Register("pg", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("postgres", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
