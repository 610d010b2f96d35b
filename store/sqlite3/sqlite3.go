// Package sqlite3 implements a seguid store in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = &Store{}

// Store is a Sqlite-based seguid store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `seguids` and `seguid_ids` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
//
// The seq column of seguid_ids orders identifiers by when they were first recorded,
// which decides reverse lookups of identifiers recorded under more than one seguid.
const Schema = `
CREATE TABLE IF NOT EXISTS seguids (
  seguid TEXT PRIMARY KEY NOT NULL
);

CREATE TABLE IF NOT EXISTS seguid_ids (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  seguid TEXT NOT NULL REFERENCES seguids (seguid),
  id TEXT NOT NULL,
  UNIQUE (seguid, id)
);

CREATE INDEX IF NOT EXISTS seguid_ids_id_idx ON seguid_ids (id, seq);
`

// New produces a new Store using `db` for storage.
// It expects to create tables `seguids` and `seguid_ids`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
//
// Sqlite permits one writer at a time,
// so New limits db to a single open connection.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Get gets the record for fp.
func (s *Store) Get(ctx context.Context, fp seguid.Seguid) (seguid.Record, error) {
	const q = `SELECT seguid FROM seguids WHERE seguid = $1`

	var found string
	err := s.db.QueryRowContext(ctx, q, string(fp)).Scan(&found)
	if stderrs.Is(err, sql.ErrNoRows) {
		return seguid.Record{}, seguid.ErrNotFound
	}
	if err != nil {
		return seguid.Record{}, errors.Wrapf(err, "getting %s", fp)
	}

	const q2 = `SELECT id FROM seguid_ids WHERE seguid = $1 ORDER BY id`

	rec := seguid.Record{Seguid: fp, IDs: []string{}}
	err = sqlutil.ForQueryRows(ctx, s.db, q2, string(fp), func(id string) {
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

	const q2 = `INSERT INTO seguid_ids (seguid, id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	var added int64
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, q2, string(fp), id)
		if err != nil {
			return seguid.Unchanged, errors.Wrapf(err, "adding %s to %s", id, fp)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return seguid.Unchanged, errors.Wrap(err, "counting affected rows")
		}
		added += aff
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
// The query completes before f is first called,
// so f may use the store.
func (s *Store) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	const q = `SELECT seguid FROM seguids WHERE seguid > $1 ORDER BY seguid`

	var fps []seguid.Seguid
	err := sqlutil.ForQueryRows(ctx, s.db, q, string(start), func(fp string) {
		fps = append(fps, seguid.Seguid(fp))
	})
	if err != nil {
		return errors.Wrap(err, "listing seguids")
	}
	for _, fp := range fps {
		if err := f(fp); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
