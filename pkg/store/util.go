package store

import (
	"slices"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

// ChunkRange calls fn for consecutive [start, end) windows of at most
// chunkSize covering [0, total).
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// DedupeStrings drops empty strings and repeats, keeping first occurrences.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// EntitiesOf lists the entities of triples in order of first appearance.
func EntitiesOf(triples []common.Triple) []string {
	names := make([]string, 0, 2*len(triples))
	for _, t := range triples {
		names = append(names, t.Head, t.Tail)
	}
	out := DedupeStrings(names)
	if out == nil {
		out = []string{}
	}
	return out
}

// LockNames returns the sorted distinct names a guarded insert of t for
// entity has to serialise on.
func LockNames(entity string, t common.Triple) []string {
	names := DedupeStrings([]string{entity, t.Head, t.Tail})
	slices.Sort(names)
	return names
}
