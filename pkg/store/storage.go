package store

import (
	"context"
	"errors"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

var (
	// ErrEntityExists is returned by a guarded insert when the guarded entity
	// already appears in a triple.
	ErrEntityExists = errors.New("entity already exists in graph")
	// ErrTripleNotFound is returned when a triple id is unknown.
	ErrTripleNotFound = errors.New("triple not found")
)

// GraphStorage persists the triple graph and its relation vocabulary.
// Entities are not stored on their own: an entity exists iff it is the head
// or tail of at least one triple.
type GraphStorage interface {
	EntityExists(ctx context.Context, name string) (bool, error)
	// NeighborsOf returns the distinct entities sharing a triple with name,
	// ordered by the smallest id of a triple connecting them.
	NeighborsOf(ctx context.Context, name string) ([]string, error)
	// ValidRelations returns the vocabulary in insertion order.
	ValidRelations(ctx context.Context) ([]string, error)
	InsertTriple(ctx context.Context, t common.Triple) (int64, error)
	// InsertTripleUnlessEntityExists inserts t only if entity is not yet part
	// of any triple, checking and inserting atomically with respect to other
	// guarded inserts. Returns ErrEntityExists otherwise.
	InsertTripleUnlessEntityExists(ctx context.Context, entity string, t common.Triple) (int64, error)

	ListTriples(ctx context.Context) ([]common.Triple, error)
	// ListEntities returns every entity in order of first appearance.
	ListEntities(ctx context.Context) ([]string, error)
	CountTriples(ctx context.Context) (int64, error)
	// DeleteEntity removes every triple touching name and returns how many.
	DeleteEntity(ctx context.Context, name string) (int64, error)
	// RenameEntity rewrites name on both sides of every triple and returns
	// how many triples changed.
	RenameEntity(ctx context.Context, oldName, newName string) (int64, error)
	DeleteTriple(ctx context.Context, id int64) error
	UpdateTriple(ctx context.Context, t common.Triple) error
	// AddRelation appends label to the vocabulary. Existing labels are kept.
	AddRelation(ctx context.Context, label string) error

	Close() error
}
