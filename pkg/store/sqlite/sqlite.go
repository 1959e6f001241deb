// Package sqlite is a GraphStorage on an embedded SQLite database
// (pure-Go ncruces driver with the sqlite-vec extension compiled in).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/store"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

const schema = `
CREATE TABLE IF NOT EXISTS triples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    head_entity TEXT NOT NULL,
    relation TEXT NOT NULL,
    tail_entity TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triples_head ON triples(head_entity);
CREATE INDEX IF NOT EXISTS idx_triples_tail ON triples(tail_entity);

CREATE TABLE IF NOT EXISTS relations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

-- word vectors for the sqlite-vec embedding space
CREATE TABLE IF NOT EXISTS word_vectors (
    word TEXT PRIMARY KEY,
    embedding BLOB NOT NULL
);
`

// GraphSQLiteStorage implements store.GraphStorage. It uses a single
// connection, so statements never interleave.
type GraphSQLiteStorage struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*GraphSQLiteStorage, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(wal)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := VecVersion(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec unavailable: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &GraphSQLiteStorage{db: db}, nil
}

// VecVersion reports the sqlite-vec version compiled into the engine.
func VecVersion(ctx context.Context, db *sql.DB) (string, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT vec_version()`).Scan(&v)
	return v, err
}

// DB exposes the underlying handle, e.g. for the sqlite-vec embedding space.
func (s *GraphSQLiteStorage) DB() *sql.DB { return s.db }

func (s *GraphSQLiteStorage) EntityExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM triples WHERE head_entity = ?1 OR tail_entity = ?1)`,
		name,
	).Scan(&ok)
	return ok, err
}

func (s *GraphSQLiteStorage) NeighborsOf(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT related FROM (
			SELECT tail_entity AS related, id FROM triples WHERE head_entity = ?1 AND tail_entity <> ?1
			UNION ALL
			SELECT head_entity AS related, id FROM triples WHERE tail_entity = ?1 AND head_entity <> ?1
		)
		GROUP BY related
		ORDER BY MIN(id)`,
		name,
	)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (s *GraphSQLiteStorage) ValidRelations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM relations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (s *GraphSQLiteStorage) InsertTriple(ctx context.Context, t common.Triple) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO triples (head_entity, relation, tail_entity) VALUES (?, ?, ?)`,
		t.Head, t.Relation, t.Tail,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertTripleUnlessEntityExists relies on SQLite executing a single
// statement atomically.
func (s *GraphSQLiteStorage) InsertTripleUnlessEntityExists(
	ctx context.Context,
	entity string,
	t common.Triple,
) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO triples (head_entity, relation, tail_entity)
		SELECT ?1, ?2, ?3
		WHERE NOT EXISTS (SELECT 1 FROM triples WHERE head_entity = ?4 OR tail_entity = ?4)`,
		t.Head, t.Relation, t.Tail, entity,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrEntityExists
	}
	return res.LastInsertId()
}

func (s *GraphSQLiteStorage) ListTriples(ctx context.Context) ([]common.Triple, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, head_entity, relation, tail_entity FROM triples ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []common.Triple{}
	for rows.Next() {
		var t common.Triple
		if err := rows.Scan(&t.ID, &t.Head, &t.Relation, &t.Tail); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *GraphSQLiteStorage) ListEntities(ctx context.Context) ([]string, error) {
	triples, err := s.ListTriples(ctx)
	if err != nil {
		return nil, err
	}
	return store.EntitiesOf(triples), nil
}

func (s *GraphSQLiteStorage) CountTriples(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triples`).Scan(&n)
	return n, err
}

func (s *GraphSQLiteStorage) DeleteEntity(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM triples WHERE head_entity = ?1 OR tail_entity = ?1`, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *GraphSQLiteStorage) RenameEntity(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE triples
		   SET head_entity = CASE WHEN head_entity = ?1 THEN ?2 ELSE head_entity END,
		       tail_entity = CASE WHEN tail_entity = ?1 THEN ?2 ELSE tail_entity END
		 WHERE head_entity = ?1 OR tail_entity = ?1`,
		oldName, newName,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *GraphSQLiteStorage) DeleteTriple(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM triples WHERE id = ?`, id)
	return affectedOne(res, err)
}

func (s *GraphSQLiteStorage) UpdateTriple(ctx context.Context, t common.Triple) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE triples SET head_entity = ?, relation = ?, tail_entity = ? WHERE id = ?`,
		t.Head, t.Relation, t.Tail, t.ID,
	)
	return affectedOne(res, err)
}

func (s *GraphSQLiteStorage) AddRelation(ctx context.Context, label string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relations (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, label)
	return err
}

func (s *GraphSQLiteStorage) Close() error {
	return s.db.Close()
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTripleNotFound
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ store.GraphStorage = (*GraphSQLiteStorage)(nil)
