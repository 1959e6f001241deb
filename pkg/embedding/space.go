// Package embedding holds the word-embedding spaces consulted by the
// similarity oracle.
package embedding

import (
	"context"
	"errors"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

// ErrWordNotFound is returned when a word is outside a space's vocabulary.
var ErrWordNotFound = errors.New("word not in vocabulary")

// Space is a word-embedding space able to answer neighbour and pairwise
// similarity queries.
type Space interface {
	Name() string
	Contains(ctx context.Context, word string) bool
	// NearestNeighbors returns up to topN words ordered by descending cosine
	// similarity, never including word itself.
	NearestNeighbors(ctx context.Context, word string, topN int) ([]common.ScoredWord, error)
	Similarity(ctx context.Context, a, b string) (float64, error)
}
