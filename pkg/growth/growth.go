// Package growth runs the three-step workflow that adds a new entity to the
// graph: propose similar entities, propose triples linking the new entity to
// a chosen entity's neighbours, commit one triple.
package growth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/pinewilt/kgcurate/backend/internal/util"
	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/inference"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/similarity"
	"github.com/pinewilt/kgcurate/backend/pkg/store"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTopN        = 10
	DefaultParallelism = 4
	overFetchFactor    = 3
)

// SimilarityOracle is the part of similarity.Oracle the workflow needs.
type SimilarityOracle interface {
	MostSimilar(ctx context.Context, word string, topN int) similarity.Result
	SimilarityAgainstCandidates(ctx context.Context, word string, candidates []string) similarity.Result
}

// RelationOracle is the part of inference.Oracle the workflow needs.
type RelationOracle interface {
	InferRelation(ctx context.Context, a, c string, valid []string) (inference.Inference, error)
}

// Services are the collaborators of an Orchestrator, built once at start-up.
type Services struct {
	Store      store.GraphStorage
	Similarity SimilarityOracle
	Inference  RelationOracle
	// Parallelism bounds concurrent relation inferences; 1 is sequential,
	// <= 0 means DefaultParallelism.
	Parallelism int
}

// Orchestrator holds no workflow state; every step re-validates against
// the graph.
type Orchestrator struct {
	store       store.GraphStorage
	similarity  SimilarityOracle
	inference   RelationOracle
	parallelism int
}

// New creates an Orchestrator from svc.
func New(svc Services) *Orchestrator {
	p := svc.Parallelism
	if p <= 0 {
		p = DefaultParallelism
	}
	return &Orchestrator{
		store:       svc.Store,
		similarity:  svc.Similarity,
		inference:   svc.Inference,
		parallelism: p,
	}
}

// Candidate is a proposed similar entity.
type Candidate struct {
	Entity     string  `json:"entity"`
	Similarity float64 `json:"similarity"`
	InGraph    bool    `json:"in_graph"`
}

// CandidateStats counts the over-fetched pool the candidates were drawn from.
type CandidateStats struct {
	InGraphCount  int    `json:"in_graph_count"`
	OutGraphCount int    `json:"out_graph_count"`
	TotalReturned int    `json:"total_returned"`
	Tier          string `json:"tier"`
}

// CandidateSet is the answer of ProposeCandidates.
type CandidateSet struct {
	Input      string         `json:"input"`
	Candidates []Candidate    `json:"similar_entities"`
	Stats      CandidateStats `json:"stats"`
}

// CandidateTriple is one proposed triple with the tier that chose its relation.
type CandidateTriple struct {
	common.Triple
	Tier string `json:"tier"`
}

// TripleSet is the answer of ProposeTriples, one triple per neighbour in
// neighbour order.
type TripleSet struct {
	Input   string            `json:"input_entity"`
	Similar string            `json:"similar_entity"`
	Triples []CandidateTriple `json:"candidate_triples"`
	Total   int               `json:"total_candidates"`
}

func normalize(name string) (string, error) {
	n := util.NormalizeEntityName(name)
	if n == "" {
		return "", fmt.Errorf("%w: entity name is empty", ErrInvalidInput)
	}
	return n, nil
}

func (o *Orchestrator) ensureAbsent(ctx context.Context, entity string) error {
	exists, err := o.store.EntityExists(ctx, entity)
	if err != nil {
		return fmt.Errorf("%w: check %s: %v", ErrStorage, entity, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, entity)
	}
	return nil
}

// ProposeCandidates ranks entities similar to entityA, preferring entities
// already in the graph. topN <= 0 means DefaultTopN.
func (o *Orchestrator) ProposeCandidates(ctx context.Context, entityA string, topN int) (CandidateSet, error) {
	a, err := normalize(entityA)
	if err != nil {
		return CandidateSet{}, err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if err := o.ensureAbsent(ctx, a); err != nil {
		return CandidateSet{}, err
	}

	res := o.similarity.MostSimilar(ctx, a, overFetchFactor*topN)
	if len(res.Words) == 0 {
		return CandidateSet{}, fmt.Errorf("%w: no similar entities for %s", ErrNotFound, a)
	}

	var inGraph, outGraph []Candidate
	for _, w := range res.Words {
		exists, err := o.store.EntityExists(ctx, w.Word)
		if err != nil {
			return CandidateSet{}, fmt.Errorf("%w: check %s: %v", ErrStorage, w.Word, err)
		}
		c := Candidate{Entity: w.Word, Similarity: w.Score, InGraph: exists}
		if exists {
			inGraph = append(inGraph, c)
		} else {
			outGraph = append(outGraph, c)
		}
	}

	out := make([]Candidate, 0, topN)
	out = append(out, inGraph[:min(topN, len(inGraph))]...)
	if pad := topN - len(out); pad > 0 {
		out = append(out, outGraph[:min(pad, len(outGraph))]...)
	}

	stats := CandidateStats{
		InGraphCount:  len(inGraph),
		OutGraphCount: len(outGraph),
		TotalReturned: len(out),
		Tier:          res.Tier,
	}

	logger.Debug("[Growth][ProposeCandidates] ranked candidates",
		"entity", a, "tier", res.Tier, "in_graph", stats.InGraphCount, "returned", stats.TotalReturned)

	return CandidateSet{Input: a, Candidates: out, Stats: stats}, nil
}

// ProposeTriples infers one relation from entityA to every neighbour of
// entityB. Inference runs with bounded parallelism; results keep neighbour
// order.
func (o *Orchestrator) ProposeTriples(ctx context.Context, entityA, entityB string) (TripleSet, error) {
	a, err := normalize(entityA)
	if err != nil {
		return TripleSet{}, err
	}
	b, err := normalize(entityB)
	if err != nil {
		return TripleSet{}, err
	}
	if err := o.ensureAbsent(ctx, a); err != nil {
		return TripleSet{}, err
	}

	neighbors, err := o.store.NeighborsOf(ctx, b)
	if err != nil {
		return TripleSet{}, fmt.Errorf("%w: neighbours of %s: %v", ErrStorage, b, err)
	}
	if len(neighbors) == 0 {
		return TripleSet{}, fmt.Errorf("%w: %s has no neighbours in the graph", ErrNotFound, b)
	}

	valid, err := o.store.ValidRelations(ctx)
	if err != nil {
		return TripleSet{}, fmt.Errorf("%w: relation vocabulary: %v", ErrStorage, err)
	}
	if len(valid) == 0 {
		return TripleSet{}, fmt.Errorf("%w: relation vocabulary is empty", ErrNotFound)
	}

	triples := make([]CandidateTriple, len(neighbors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, c := range neighbors {
		g.Go(func() error {
			inf, err := o.inference.InferRelation(gctx, a, c, valid)
			if err != nil {
				return err
			}
			triples[i] = CandidateTriple{
				Triple: common.Triple{Head: a, Relation: inf.Relation, Tail: c},
				Tier:   inf.Tier,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, inference.ErrNoRelations) {
			return TripleSet{}, fmt.Errorf("%w: relation vocabulary is empty", ErrNotFound)
		}
		return TripleSet{}, err
	}

	return TripleSet{Input: a, Similar: b, Triples: triples, Total: len(triples)}, nil
}

// Commit persists selected after a final duplicate check on entityA. The
// triple is stored as given, even when its head differs from entityA.
func (o *Orchestrator) Commit(ctx context.Context, entityA string, selected common.Triple) (common.Triple, error) {
	a, err := normalize(entityA)
	if err != nil {
		return common.Triple{}, err
	}

	t := common.Triple{
		Head:     util.NormalizeEntityName(selected.Head),
		Relation: util.NormalizeEntityName(selected.Relation),
		Tail:     util.NormalizeEntityName(selected.Tail),
	}
	if t.Head == "" || t.Relation == "" || t.Tail == "" {
		return common.Triple{}, fmt.Errorf("%w: head, relation and tail are required", ErrInvalidInput)
	}

	if err := o.ensureAbsent(ctx, a); err != nil {
		return common.Triple{}, err
	}

	valid, err := o.store.ValidRelations(ctx)
	if err != nil {
		return common.Triple{}, fmt.Errorf("%w: relation vocabulary: %v", ErrStorage, err)
	}
	if !slices.Contains(valid, t.Relation) {
		return common.Triple{}, fmt.Errorf("%w: %s", ErrInvalidRelation, t.Relation)
	}

	id, err := o.store.InsertTripleUnlessEntityExists(ctx, a, t)
	if errors.Is(err, store.ErrEntityExists) {
		return common.Triple{}, fmt.Errorf("%w: %s", ErrDuplicateEntity, a)
	}
	if err != nil {
		return common.Triple{}, fmt.Errorf("%w: insert triple: %v", ErrStorage, err)
	}
	t.ID = id

	logger.Info("[Growth][Commit] triple added",
		"id", id, "head", t.Head, "relation", t.Relation, "tail", t.Tail)

	return t, nil
}

// RankGraphEntities scores every entity currently in the graph against
// entityA and returns the best topN.
func (o *Orchestrator) RankGraphEntities(ctx context.Context, entityA string, topN int) (similarity.Result, error) {
	a, err := normalize(entityA)
	if err != nil {
		return similarity.Result{}, err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	entities, err := o.store.ListEntities(ctx)
	if err != nil {
		return similarity.Result{}, fmt.Errorf("%w: list entities: %v", ErrStorage, err)
	}
	entities = slices.DeleteFunc(entities, func(e string) bool { return e == a })

	res := o.similarity.SimilarityAgainstCandidates(ctx, a, entities)
	if len(res.Words) > topN {
		res.Words = res.Words[:topN]
	}
	return res, nil
}
