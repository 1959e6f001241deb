// Package storetest is a conformance suite run against every GraphStorage
// implementation.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) store.GraphStorage

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Existence", func(t *testing.T) { testExistence(t, newStore(t)) })
	t.Run("Neighbors", func(t *testing.T) { testNeighbors(t, newStore(t)) })
	t.Run("Relations", func(t *testing.T) { testRelations(t, newStore(t)) })
	t.Run("GuardedInsert", func(t *testing.T) { testGuardedInsert(t, newStore(t)) })
	t.Run("GuardedInsertRace", func(t *testing.T) { testGuardedInsertRace(t, newStore(t)) })
	t.Run("Maintenance", func(t *testing.T) { testMaintenance(t, newStore(t)) })
	t.Run("Seed", func(t *testing.T) { testSeed(t, newStore(t)) })
}

func insert(t *testing.T, s store.GraphStorage, head, rel, tail string) int64 {
	t.Helper()
	id, err := s.InsertTriple(context.Background(), common.Triple{Head: head, Relation: rel, Tail: tail})
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

func testExistence(t *testing.T, s store.GraphStorage) {
	ctx := context.Background()

	ok, err := s.EntityExists(ctx, "马尾松")
	require.NoError(t, err)
	assert.False(t, ok)

	insert(t, s, "马尾松", "属于", "松树")

	for _, name := range []string{"马尾松", "松树"} {
		ok, err := s.EntityExists(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	ok, err = s.EntityExists(ctx, "属于")
	require.NoError(t, err)
	assert.False(t, ok, "relation labels are not entities")
}

func testNeighbors(t *testing.T, s store.GraphStorage) {
	ctx := context.Background()

	insert(t, s, "松墨天牛", "传播", "松材线虫")
	insert(t, s, "马尾松", "易感", "松材线虫")
	insert(t, s, "松材线虫", "引起", "松材线虫病")
	insert(t, s, "松墨天牛", "媒介", "松材线虫")
	insert(t, s, "温度", "影响", "松墨天牛")

	got, err := s.NeighborsOf(ctx, "松材线虫")
	require.NoError(t, err)
	assert.Equal(t, []string{"松墨天牛", "马尾松", "松材线虫病"}, got)

	got, err = s.NeighborsOf(ctx, "不存在")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testRelations(t *testing.T, s store.GraphStorage) {
	ctx := context.Background()

	got, err := s.ValidRelations(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, r := range []string{"属于", "易感", "属于", "传播"} {
		require.NoError(t, s.AddRelation(ctx, r))
	}
	got, err = s.ValidRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"属于", "易感", "传播"}, got)
}

func testGuardedInsert(t *testing.T, s store.GraphStorage) {
	ctx := context.Background()
	insert(t, s, "马尾松", "属于", "松树")

	id, err := s.InsertTripleUnlessEntityExists(ctx, "黑松",
		common.Triple{Head: "黑松", Relation: "属于", Tail: "松树"})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.InsertTripleUnlessEntityExists(ctx, "黑松",
		common.Triple{Head: "黑松", Relation: "易感", Tail: "松材线虫"})
	assert.ErrorIs(t, err, store.ErrEntityExists)

	// guarded entity only appearing as a tail still counts
	_, err = s.InsertTripleUnlessEntityExists(ctx, "松树",
		common.Triple{Head: "松树", Relation: "属于", Tail: "植物"})
	assert.ErrorIs(t, err, store.ErrEntityExists)

	n, err := s.CountTriples(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func testGuardedInsertRace(t *testing.T, s store.GraphStorage) {
	ctx := context.Background()
	insert(t, s, "马尾松", "属于", "松树")

	const workers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertTripleUnlessEntityExists(ctx, "黑松",
				common.Triple{Head: "黑松", Relation: "属于", Tail: "松树"})
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, store.ErrEntityExists):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded.Load())
	assert.EqualValues(t, workers-1, rejected.Load())
}

func testMaintenance(t *testing.T, s store.GraphStorage) {
	ctx := context.Background()

	first := insert(t, s, "马尾松", "属于", "松树")
	insert(t, s, "黑松", "属于", "松树")
	third := insert(t, s, "马尾松", "易感", "松材线虫")

	entities, err := s.ListEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"马尾松", "松树", "黑松", "松材线虫"}, entities)

	renamed, err := s.RenameEntity(ctx, "马尾松", "湿地松")
	require.NoError(t, err)
	assert.EqualValues(t, 2, renamed)

	triples, err := s.ListTriples(ctx)
	require.NoError(t, err)
	require.Len(t, triples, 3)
	assert.Equal(t, common.Triple{ID: first, Head: "湿地松", Relation: "属于", Tail: "松树"}, triples[0])

	require.NoError(t, s.UpdateTriple(ctx, common.Triple{ID: third, Head: "湿地松", Relation: "危害", Tail: "松材线虫病"}))
	assert.ErrorIs(t, s.UpdateTriple(ctx, common.Triple{ID: 9999, Head: "a", Relation: "b", Tail: "c"}), store.ErrTripleNotFound)

	deleted, err := s.DeleteEntity(ctx, "湿地松")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	assert.ErrorIs(t, s.DeleteTriple(ctx, first), store.ErrTripleNotFound)

	triples, err = s.ListTriples(ctx)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	require.NoError(t, s.DeleteTriple(ctx, triples[0].ID))

	n, err := s.CountTriples(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	triples, err = s.ListTriples(ctx)
	require.NoError(t, err)
	assert.NotNil(t, triples)
	assert.Empty(t, triples)
}

func testSeed(t *testing.T, s store.GraphStorage) {
	ctx := context.Background()

	res, err := store.Seed(ctx, s, store.DefaultRelations, store.SampleTriples)
	require.NoError(t, err)
	assert.Equal(t, len(store.SampleTriples), res.Triples)

	again, err := store.Seed(ctx, s, store.DefaultRelations, store.SampleTriples)
	require.NoError(t, err)
	assert.Zero(t, again.Triples, "seed must not duplicate triples")

	n, err := s.CountTriples(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(store.SampleTriples), n)

	rels, err := s.ValidRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultRelations, rels)
}
