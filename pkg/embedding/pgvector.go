package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/pinewilt/kgcurate/backend/pkg/common"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

// PGVectorSpace is an embedding space stored in a Postgres table
// (word TEXT PRIMARY KEY, embedding VECTOR) and searched with the pgvector
// cosine distance operator.
type PGVectorSpace struct {
	name  string
	table string
	conn  pgxQuerier
}

// NewPGVectorSpace returns a space over table. The table name is quoted as an
// identifier.
func NewPGVectorSpace(name string, conn pgxQuerier, table string) *PGVectorSpace {
	return &PGVectorSpace{
		name:  name,
		table: pgx.Identifier{table}.Sanitize(),
		conn:  conn,
	}
}

// Name returns the tier name of the space.
func (s *PGVectorSpace) Name() string { return s.name }

// EnsureTable creates the vector extension and the backing table if they are
// missing.
func (s *PGVectorSpace) EnsureTable(ctx context.Context, dim int) error {
	if _, err := s.conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}
	_, err := s.conn.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (word TEXT PRIMARY KEY, embedding VECTOR(%d) NOT NULL)`,
		s.table, dim,
	))
	return err
}

// Upsert stores the vector for word.
func (s *PGVectorSpace) Upsert(ctx context.Context, word string, vec []float32) error {
	_, err := s.conn.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (word, embedding) VALUES ($1, $2)
		 ON CONFLICT (word) DO UPDATE SET embedding = EXCLUDED.embedding`,
		s.table,
	), word, pgvector.NewVector(vec))
	return err
}

// Contains reports whether word has a stored vector. Query failures count as
// absent.
func (s *PGVectorSpace) Contains(ctx context.Context, word string) bool {
	var ok bool
	err := s.conn.QueryRow(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE word = $1)`, s.table,
	), word).Scan(&ok)
	return err == nil && ok
}

// NearestNeighbors orders the table by cosine distance to word's vector.
func (s *PGVectorSpace) NearestNeighbors(
	ctx context.Context,
	word string,
	topN int,
) ([]common.ScoredWord, error) {
	if topN <= 0 {
		return []common.ScoredWord{}, nil
	}

	query, err := s.vector(ctx, word)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, fmt.Sprintf(
		`SELECT word, 1 - (embedding <=> $1) AS similarity
		   FROM %s
		  WHERE word <> $2
		  ORDER BY embedding <=> $1, word
		  LIMIT $3`,
		s.table,
	), query, word, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]common.ScoredWord, 0, topN)
	for rows.Next() {
		var w common.ScoredWord
		if err := rows.Scan(&w.Word, &w.Score); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Similarity returns 1 - cosine distance between the vectors of a and b.
func (s *PGVectorSpace) Similarity(ctx context.Context, a, b string) (float64, error) {
	var sim *float64
	err := s.conn.QueryRow(ctx, fmt.Sprintf(
		`SELECT 1 - (x.embedding <=> y.embedding)
		   FROM %[1]s x, %[1]s y
		  WHERE x.word = $1 AND y.word = $2`,
		s.table,
	), a, b).Scan(&sim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w: %s / %s", s.name, ErrWordNotFound, a, b)
	}
	if err != nil {
		return 0, err
	}
	if sim == nil {
		return 0, nil
	}
	return *sim, nil
}

func (s *PGVectorSpace) vector(ctx context.Context, word string) (pgvector.Vector, error) {
	var v pgvector.Vector
	err := s.conn.QueryRow(ctx, fmt.Sprintf(
		`SELECT embedding FROM %s WHERE word = $1`, s.table,
	), word).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return v, fmt.Errorf("%s: %w: %s", s.name, ErrWordNotFound, word)
	}
	return v, err
}
