// Package pgx is the Postgres GraphStorage.
package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/leaselock"
	"github.com/pinewilt/kgcurate/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// Locker serialises guarded inserts across processes.
type Locker interface {
	WithLeases(ctx context.Context, keys []string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// GraphDBStorage implements store.GraphStorage on Postgres. Guarded inserts
// hold a lease on every entity name they touch, then insert conditionally.
type GraphDBStorage struct {
	conn     pgxIConn
	locks    Locker
	lockOpts leaselock.Options
	closeFn  func()
}

type GraphDBStorageOption func(*GraphDBStorage)

// WithLockOptions overrides the lease options used by guarded inserts.
func WithLockOptions(opts leaselock.Options) GraphDBStorageOption {
	return func(s *GraphDBStorage) {
		s.lockOpts = opts
	}
}

// WithCloser sets what Close releases, typically the pool.
func WithCloser(fn func()) GraphDBStorageOption {
	return func(s *GraphDBStorage) {
		s.closeFn = fn
	}
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage on an existing
// connection or pool. locks may be nil, which leaves guarded inserts to the
// conditional statement alone.
func NewGraphDBStorageWithConnection(
	conn pgxIConn,
	locks Locker,
	opts ...GraphDBStorageOption,
) *GraphDBStorage {
	s := &GraphDBStorage{
		conn:     conn,
		locks:    locks,
		lockOpts: leaselock.CommitOptions(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *GraphDBStorage) EntityExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.conn.QueryRow(ctx, entityExistsSQL, name).Scan(&ok)
	return ok, err
}

func (s *GraphDBStorage) NeighborsOf(ctx context.Context, name string) ([]string, error) {
	rows, err := s.conn.Query(ctx, neighborsSQL, name)
	if err != nil {
		return nil, err
	}
	out, err := pgxv5.CollectRows(rows, pgxv5.RowTo[string])
	if out == nil {
		out = []string{}
	}
	return out, err
}

func (s *GraphDBStorage) ValidRelations(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT name FROM relations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out, err := pgxv5.CollectRows(rows, pgxv5.RowTo[string])
	if out == nil {
		out = []string{}
	}
	return out, err
}

func (s *GraphDBStorage) InsertTriple(ctx context.Context, t common.Triple) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, insertTripleSQL, t.Head, t.Relation, t.Tail).Scan(&id)
	return id, err
}

func (s *GraphDBStorage) InsertTripleUnlessEntityExists(
	ctx context.Context,
	entity string,
	t common.Triple,
) (int64, error) {
	insert := func(ctx context.Context) (int64, error) {
		var id int64
		err := s.conn.QueryRow(ctx, insertTripleGuardedSQL, t.Head, t.Relation, t.Tail, entity).Scan(&id)
		if errors.Is(err, pgxv5.ErrNoRows) {
			return 0, store.ErrEntityExists
		}
		return id, err
	}

	if s.locks == nil {
		return insert(ctx)
	}

	names := store.LockNames(entity, t)
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = leaselock.EntityKey(n)
	}

	var id int64
	err := s.locks.WithLeases(ctx, keys, s.lockOpts, func(ctx context.Context) error {
		var err error
		id, err = insert(ctx)
		return err
	})
	return id, err
}

func (s *GraphDBStorage) ListTriples(ctx context.Context) ([]common.Triple, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, head_entity, relation, tail_entity FROM triples ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Triple, error) {
		var t common.Triple
		err := row.Scan(&t.ID, &t.Head, &t.Relation, &t.Tail)
		return t, err
	})
	if out == nil {
		out = []common.Triple{}
	}
	return out, err
}

func (s *GraphDBStorage) ListEntities(ctx context.Context) ([]string, error) {
	triples, err := s.ListTriples(ctx)
	if err != nil {
		return nil, err
	}
	return store.EntitiesOf(triples), nil
}

func (s *GraphDBStorage) CountTriples(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM triples`).Scan(&n)
	return n, err
}

func (s *GraphDBStorage) DeleteEntity(ctx context.Context, name string) (int64, error) {
	tag, err := s.conn.Exec(ctx,
		`DELETE FROM triples WHERE head_entity = $1 OR tail_entity = $1`, name)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *GraphDBStorage) RenameEntity(ctx context.Context, oldName, newName string) (int64, error) {
	tag, err := s.conn.Exec(ctx, renameEntitySQL, oldName, newName)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *GraphDBStorage) DeleteTriple(ctx context.Context, id int64) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM triples WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrTripleNotFound
	}
	return nil
}

func (s *GraphDBStorage) UpdateTriple(ctx context.Context, t common.Triple) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE triples SET head_entity = $1, relation = $2, tail_entity = $3, updated_at = $5 WHERE id = $4`,
		t.Head, t.Relation, t.Tail, t.ID, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrTripleNotFound
	}
	return nil
}

func (s *GraphDBStorage) AddRelation(ctx context.Context, label string) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO relations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, label)
	return err
}

func (s *GraphDBStorage) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var _ store.GraphStorage = (*GraphDBStorage)(nil)
