// Package memory is an in-process GraphStorage used in tests and for
// STORE_ADAPTER=memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/store"
)

// GraphMemStorage keeps triples and the vocabulary in slices behind a mutex.
type GraphMemStorage struct {
	mu        sync.RWMutex
	nextID    int64
	triples   []common.Triple
	relations []string
}

// New returns an empty store.
func New() *GraphMemStorage {
	return &GraphMemStorage{nextID: 1}
}

func (s *GraphMemStorage) EntityExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(name), nil
}

func (s *GraphMemStorage) exists(name string) bool {
	for _, t := range s.triples {
		if t.Head == name || t.Tail == name {
			return true
		}
	}
	return false
}

func (s *GraphMemStorage) NeighborsOf(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// triples are kept in id order
	out := []string{}
	seen := map[string]struct{}{}
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	for _, t := range s.triples {
		if t.Head == name && t.Tail != name {
			add(t.Tail)
		}
		if t.Tail == name && t.Head != name {
			add(t.Head)
		}
	}
	return out, nil
}

func (s *GraphMemStorage) ValidRelations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.relations), nil
}

func (s *GraphMemStorage) InsertTriple(_ context.Context, t common.Triple) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(t), nil
}

func (s *GraphMemStorage) insert(t common.Triple) int64 {
	t.ID = s.nextID
	s.nextID++
	s.triples = append(s.triples, t)
	return t.ID
}

func (s *GraphMemStorage) InsertTripleUnlessEntityExists(
	_ context.Context,
	entity string,
	t common.Triple,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exists(entity) {
		return 0, store.ErrEntityExists
	}
	return s.insert(t), nil
}

func (s *GraphMemStorage) ListTriples(_ context.Context) ([]common.Triple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.triples)
	if out == nil {
		out = []common.Triple{}
	}
	return out, nil
}

func (s *GraphMemStorage) ListEntities(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.EntitiesOf(s.triples), nil
}

func (s *GraphMemStorage) CountTriples(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.triples)), nil
}

func (s *GraphMemStorage) DeleteEntity(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.triples)
	s.triples = slices.DeleteFunc(s.triples, func(t common.Triple) bool {
		return t.Head == name || t.Tail == name
	})
	return int64(before - len(s.triples)), nil
}

func (s *GraphMemStorage) RenameEntity(_ context.Context, oldName, newName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.triples {
		changed := false
		if s.triples[i].Head == oldName {
			s.triples[i].Head = newName
			changed = true
		}
		if s.triples[i].Tail == oldName {
			s.triples[i].Tail = newName
			changed = true
		}
		if changed {
			n++
		}
	}
	return n, nil
}

func (s *GraphMemStorage) DeleteTriple(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return store.ErrTripleNotFound
	}
	s.triples = slices.Delete(s.triples, i, i+1)
	return nil
}

func (s *GraphMemStorage) UpdateTriple(_ context.Context, t common.Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(t.ID)
	if i < 0 {
		return store.ErrTripleNotFound
	}
	s.triples[i] = t
	return nil
}

func (s *GraphMemStorage) index(id int64) int {
	return slices.IndexFunc(s.triples, func(t common.Triple) bool { return t.ID == id })
}

func (s *GraphMemStorage) AddRelation(_ context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.relations, label) {
		s.relations = append(s.relations, label)
	}
	return nil
}

func (s *GraphMemStorage) Close() error { return nil }
