package embedding

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/pinewilt/kgcurate/backend/pkg/common"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	kvector "github.com/kshard/vector"
)

// DefaultExactLimit is the vocabulary size up to which NearestNeighbors scans
// every vector instead of asking the HNSW index.
const DefaultExactLimit = 100_000

// indexOverFetch is how many index candidates are re-scored per requested
// neighbour once the index is used.
const indexOverFetch = 10

// KeyedVectors is an in-memory word to vector table with an HNSW index for
// neighbour lookups on large vocabularies. Vectors are stored unit-normalised,
// so cosine similarity is a dot product.
type KeyedVectors struct {
	name string
	dim  int

	// ExactLimit overrides DefaultExactLimit when positive.
	ExactLimit int

	mu      sync.RWMutex
	words   []string
	keys    map[string]uint32
	vectors [][]float32
	index   *hnsw.HNSW[vector.VF32]
}

// NewKeyedVectors creates an empty space of the given dimension.
func NewKeyedVectors(name string, dim int) *KeyedVectors {
	return &KeyedVectors{
		name:  name,
		dim:   dim,
		keys:  make(map[string]uint32),
		index: hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine())),
	}
}

// Name returns the tier name of the space.
func (kv *KeyedVectors) Name() string { return kv.name }

// Dim returns the vector dimension.
func (kv *KeyedVectors) Dim() int { return kv.dim }

// Len returns the vocabulary size.
func (kv *KeyedVectors) Len() int {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return len(kv.words)
}

// Add inserts word with vec. The first vector seen for a word wins.
func (kv *KeyedVectors) Add(word string, vec []float32) error {
	if len(vec) != kv.dim {
		return fmt.Errorf("vector dimension mismatch for %q: expected %d, got %d", word, kv.dim, len(vec))
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	if _, ok := kv.keys[word]; ok {
		return nil
	}

	key := uint32(len(kv.words))
	norm := normalize(vec)
	kv.words = append(kv.words, word)
	kv.keys[word] = key
	kv.vectors = append(kv.vectors, norm)
	// zero vectors have no direction and stay out of the index
	if !isZero(norm) {
		kv.index.Insert(vector.VF32{Key: key, Vec: padToBlock(norm)})
	}

	return nil
}

// Words returns the vocabulary in insertion order.
func (kv *KeyedVectors) Words() []string {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return slices.Clone(kv.words)
}

// Vector returns a copy of the unit vector of word.
func (kv *KeyedVectors) Vector(word string) ([]float32, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	key, ok := kv.keys[word]
	if !ok {
		return nil, false
	}
	return slices.Clone(kv.vectors[key]), true
}

// Contains reports whether word is in the vocabulary.
func (kv *KeyedVectors) Contains(_ context.Context, word string) bool {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	_, ok := kv.keys[word]
	return ok
}

// NearestNeighbors returns the topN closest words to word by cosine; ties
// keep vocabulary order. Vocabularies up to the exact limit are scanned in
// full. Larger ones re-score a wide HNSW candidate set, trading exactness on
// the tail of the list for speed.
func (kv *KeyedVectors) NearestNeighbors(
	ctx context.Context,
	word string,
	topN int,
) ([]common.ScoredWord, error) {
	if topN <= 0 {
		return []common.ScoredWord{}, nil
	}

	kv.mu.RLock()
	defer kv.mu.RUnlock()

	key, ok := kv.keys[word]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", kv.name, ErrWordNotFound, word)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := kv.vectors[key]
	var hits []hit
	if len(kv.words) <= kv.exactLimit() {
		hits = kv.scan(key, query)
	} else {
		hits = kv.searchIndex(key, query, topN)
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	if len(hits) > topN {
		hits = hits[:topN]
	}

	out := make([]common.ScoredWord, len(hits))
	for i, h := range hits {
		out[i] = common.ScoredWord{Word: kv.words[h.key], Score: h.score}
	}
	return out, nil
}

type hit struct {
	key   uint32
	score float64
}

func (kv *KeyedVectors) exactLimit() int {
	if kv.ExactLimit > 0 {
		return kv.ExactLimit
	}
	return DefaultExactLimit
}

func (kv *KeyedVectors) scan(self uint32, query []float32) []hit {
	hits := make([]hit, 0, len(kv.vectors))
	for k, v := range kv.vectors {
		if uint32(k) == self || isZero(v) {
			continue
		}
		hits = append(hits, hit{key: uint32(k), score: dot(query, v)})
	}
	return hits
}

func (kv *KeyedVectors) searchIndex(self uint32, query []float32, topN int) []hit {
	k := max(topN*indexOverFetch, 200)
	ef := 2 * k

	found := kv.index.Search(vector.VF32{Vec: padToBlock(query)}, k, ef)
	hits := make([]hit, 0, len(found))
	for _, r := range found {
		if r.Key == self {
			continue
		}
		hits = append(hits, hit{key: r.Key, score: dot(query, kv.vectors[r.Key])})
	}
	return hits
}

// Similarity returns the cosine similarity of a and b.
func (kv *KeyedVectors) Similarity(_ context.Context, a, b string) (float64, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	ka, ok := kv.keys[a]
	if !ok {
		return 0, fmt.Errorf("%s: %w: %s", kv.name, ErrWordNotFound, a)
	}
	kb, ok := kv.keys[b]
	if !ok {
		return 0, fmt.Errorf("%s: %w: %s", kv.name, ErrWordNotFound, b)
	}
	return dot(kv.vectors[ka], kv.vectors[kb]), nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		return out
	}
	n := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(float64(v) / n)
	}
	return out
}

// padToBlock zero-pads vec to a multiple of 4, the block size of the
// kshard/vector distance kernels. Padding does not change cosine.
func padToBlock(vec []float32) []float32 {
	rem := len(vec) % 4
	if rem == 0 {
		return vec
	}
	out := make([]float32, len(vec)+4-rem)
	copy(out, vec)
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
