package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/embedding"
)

// VecSpace is an embedding space over the word_vectors table, scored with
// sqlite-vec's vec_distance_cosine.
type VecSpace struct {
	name string
	db   *sql.DB
}

// NewVecSpace returns a space named name over the store's database.
func (s *GraphSQLiteStorage) NewVecSpace(name string) *VecSpace {
	return &VecSpace{name: name, db: s.db}
}

func (v *VecSpace) Name() string { return v.name }

// Upsert stores vec for word.
func (v *VecSpace) Upsert(ctx context.Context, word string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	_, err = v.db.ExecContext(ctx, `
		INSERT INTO word_vectors (word, embedding) VALUES (?1, vec_f32(?2))
		ON CONFLICT (word) DO UPDATE SET embedding = excluded.embedding`,
		word, string(raw),
	)
	return err
}

// Contains reports whether word has a stored vector. Query failures count as
// absent.
func (v *VecSpace) Contains(ctx context.Context, word string) bool {
	var ok bool
	err := v.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM word_vectors WHERE word = ?)`, word).Scan(&ok)
	return err == nil && ok
}

func (v *VecSpace) NearestNeighbors(
	ctx context.Context,
	word string,
	topN int,
) ([]common.ScoredWord, error) {
	if topN <= 0 {
		return []common.ScoredWord{}, nil
	}
	if !v.Contains(ctx, word) {
		return nil, fmt.Errorf("%s: %w: %s", v.name, embedding.ErrWordNotFound, word)
	}

	rows, err := v.db.QueryContext(ctx, `
		SELECT w.word, 1 - vec_distance_cosine(w.embedding, q.embedding) AS similarity
		  FROM word_vectors w, (SELECT embedding FROM word_vectors WHERE word = ?1) q
		 WHERE w.word <> ?1
		 ORDER BY similarity DESC, w.rowid
		 LIMIT ?2`,
		word, topN,
	)
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

func (v *VecSpace) Similarity(ctx context.Context, a, b string) (float64, error) {
	var sim float64
	err := v.db.QueryRowContext(ctx, `
		SELECT 1 - vec_distance_cosine(x.embedding, y.embedding)
		  FROM word_vectors x, word_vectors y
		 WHERE x.word = ?1 AND y.word = ?2`,
		a, b,
	).Scan(&sim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w: %s / %s", v.name, embedding.ErrWordNotFound, a, b)
	}
	return sim, err
}

var _ embedding.Space = (*VecSpace)(nil)
