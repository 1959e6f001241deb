package embedding

import (
	"context"
	"fmt"

	"github.com/pinewilt/kgcurate/backend/pkg/store"
)

const defaultImportBatch = 500

// VectorWriter persists word vectors, e.g. a pgvector or sqlite-vec table.
type VectorWriter interface {
	Upsert(ctx context.Context, word string, vec []float32) error
}

// Import copies every vector of src into dst in batches, calling progress
// after each batch. It returns the number of words written.
func Import(
	ctx context.Context,
	src *KeyedVectors,
	dst VectorWriter,
	batch int,
	progress func(done, total int),
) (int, error) {
	if batch <= 0 {
		batch = defaultImportBatch
	}
	words := src.Words()
	written := 0

	err := store.ChunkRange(len(words), batch, func(start, end int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, w := range words[start:end] {
			vec, ok := src.Vector(w)
			if !ok {
				continue
			}
			if err := dst.Upsert(ctx, w, vec); err != nil {
				return fmt.Errorf("upsert %q: %w", w, err)
			}
			written++
		}
		if progress != nil {
			progress(end, len(words))
		}
		return nil
	})
	return written, err
}
