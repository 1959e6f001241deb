package store

import (
	"context"
	"errors"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/metrics"
)

type instrumented struct {
	next GraphStorage
}

// Instrumented wraps s so every call is counted and timed in pkg/metrics.
func Instrumented(s GraphStorage) GraphStorage {
	return &instrumented{next: s}
}

// ok treats expected outcomes as successful operations.
func ok(err error) bool {
	return err == nil || errors.Is(err, ErrEntityExists) || errors.Is(err, ErrTripleNotFound)
}

func (i *instrumented) EntityExists(ctx context.Context, name string) (bool, error) {
	done := metrics.TimeOp("entity_exists")
	v, err := i.next.EntityExists(ctx, name)
	done(ok(err))
	return v, err
}

func (i *instrumented) NeighborsOf(ctx context.Context, name string) ([]string, error) {
	done := metrics.TimeOp("neighbors_of")
	v, err := i.next.NeighborsOf(ctx, name)
	done(ok(err))
	return v, err
}

func (i *instrumented) ValidRelations(ctx context.Context) ([]string, error) {
	done := metrics.TimeOp("valid_relations")
	v, err := i.next.ValidRelations(ctx)
	done(ok(err))
	return v, err
}

func (i *instrumented) InsertTriple(ctx context.Context, t common.Triple) (int64, error) {
	done := metrics.TimeOp("insert_triple")
	v, err := i.next.InsertTriple(ctx, t)
	done(ok(err))
	return v, err
}

func (i *instrumented) InsertTripleUnlessEntityExists(
	ctx context.Context,
	entity string,
	t common.Triple,
) (int64, error) {
	done := metrics.TimeOp("insert_triple_guarded")
	v, err := i.next.InsertTripleUnlessEntityExists(ctx, entity, t)
	done(ok(err))
	return v, err
}

func (i *instrumented) ListTriples(ctx context.Context) ([]common.Triple, error) {
	done := metrics.TimeOp("list_triples")
	v, err := i.next.ListTriples(ctx)
	done(ok(err))
	return v, err
}

func (i *instrumented) ListEntities(ctx context.Context) ([]string, error) {
	done := metrics.TimeOp("list_entities")
	v, err := i.next.ListEntities(ctx)
	done(ok(err))
	return v, err
}

func (i *instrumented) CountTriples(ctx context.Context) (int64, error) {
	done := metrics.TimeOp("count_triples")
	v, err := i.next.CountTriples(ctx)
	done(ok(err))
	return v, err
}

func (i *instrumented) DeleteEntity(ctx context.Context, name string) (int64, error) {
	done := metrics.TimeOp("delete_entity")
	v, err := i.next.DeleteEntity(ctx, name)
	done(ok(err))
	return v, err
}

func (i *instrumented) RenameEntity(ctx context.Context, oldName, newName string) (int64, error) {
	done := metrics.TimeOp("rename_entity")
	v, err := i.next.RenameEntity(ctx, oldName, newName)
	done(ok(err))
	return v, err
}

func (i *instrumented) DeleteTriple(ctx context.Context, id int64) error {
	done := metrics.TimeOp("delete_triple")
	err := i.next.DeleteTriple(ctx, id)
	done(ok(err))
	return err
}

func (i *instrumented) UpdateTriple(ctx context.Context, t common.Triple) error {
	done := metrics.TimeOp("update_triple")
	err := i.next.UpdateTriple(ctx, t)
	done(ok(err))
	return err
}

func (i *instrumented) AddRelation(ctx context.Context, label string) error {
	done := metrics.TimeOp("add_relation")
	err := i.next.AddRelation(ctx, label)
	done(ok(err))
	return err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
