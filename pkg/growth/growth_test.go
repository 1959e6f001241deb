package growth

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"
	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/inference"
	"github.com/pinewilt/kgcurate/backend/pkg/similarity"
	"github.com/pinewilt/kgcurate/backend/pkg/store/memory"
)

type countingSimilarity struct {
	next  SimilarityOracle
	calls atomic.Int32
}

func (c *countingSimilarity) MostSimilar(ctx context.Context, word string, topN int) similarity.Result {
	c.calls.Add(1)
	return c.next.MostSimilar(ctx, word, topN)
}

func (c *countingSimilarity) SimilarityAgainstCandidates(ctx context.Context, word string, candidates []string) similarity.Result {
	c.calls.Add(1)
	return c.next.SimilarityAgainstCandidates(ctx, word, candidates)
}

type countingInference struct {
	next  RelationOracle
	calls atomic.Int32
	delay func() time.Duration
}

func (c *countingInference) InferRelation(ctx context.Context, a, cc string, valid []string) (inference.Inference, error) {
	c.calls.Add(1)
	if c.delay != nil {
		time.Sleep(c.delay())
	}
	return c.next.InferRelation(ctx, a, cc, valid)
}

type failingClient struct{}

func (failingClient) GenerateCompletion(context.Context, string, ...ai.GenerateOption) (string, error) {
	return "", errors.New("network unreachable")
}

type fixture struct {
	store *memory.GraphMemStorage
	sim   *countingSimilarity
	inf   *countingInference
	orch  *Orchestrator
}

func newFixture(t *testing.T, relations []string, triples ...common.Triple) *fixture {
	t.Helper()
	ctx := context.Background()

	s := memory.New()
	for _, r := range relations {
		if err := s.AddRelation(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	for _, tr := range triples {
		if _, err := s.InsertTriple(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}

	f := &fixture{
		store: s,
		sim:   &countingSimilarity{next: similarity.New()},
		inf: &countingInference{next: inference.NewOracle(inference.NewOracleParams{
			Client: failingClient{},
		})},
	}
	f.orch = New(Services{Store: s, Similarity: f.sim, Inference: f.inf})
	return f
}

func triple(h, r, tl string) common.Triple {
	return common.Triple{Head: h, Relation: r, Tail: tl}
}

func TestEndToEnd_GrowPineSpecies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"属于", "易感"}, triple("马尾松", "属于", "松树"))

	cands, err := f.orch.ProposeCandidates(ctx, "黑松", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawMaWeiSong bool
	for _, c := range cands.Candidates {
		if c.Entity == "马尾松" {
			sawMaWeiSong = true
			if !c.InGraph {
				t.Fatal("expected 马尾松 marked in graph")
			}
		}
	}
	if !sawMaWeiSong {
		t.Fatalf("expected 马尾松 among candidates, got %+v", cands.Candidates)
	}
	if !cands.Candidates[0].InGraph {
		t.Fatalf("expected in-graph candidates first, got %+v", cands.Candidates)
	}
	if cands.Stats.InGraphCount != 2 {
		t.Fatalf("expected 松树 and 马尾松 in graph, got %+v", cands.Stats)
	}

	triples, err := f.orch.ProposeTriples(ctx, "黑松", "马尾松")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(triples.Triples) != 1 {
		t.Fatalf("expected exactly one candidate triple, got %+v", triples.Triples)
	}
	got := triples.Triples[0]
	if got.Head != "黑松" || got.Tail != "松树" {
		t.Fatalf("expected 黑松 -> 松树, got %+v", got)
	}
	if !slices.Contains([]string{"属于", "易感"}, got.Relation) {
		t.Fatalf("relation %q outside vocabulary", got.Relation)
	}

	before, _ := f.store.CountTriples(ctx)
	committed, err := f.orch.Commit(ctx, "黑松", got.Triple)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if committed.ID <= 0 {
		t.Fatalf("expected persisted id, got %d", committed.ID)
	}
	after, _ := f.store.CountTriples(ctx)
	if after != before+1 {
		t.Fatalf("expected count %d, got %d", before+1, after)
	}

	if _, err := f.orch.ProposeCandidates(ctx, "黑松", 10); !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
}

func TestProposeCandidates_DuplicateSkipsOracle(t *testing.T) {
	f := newFixture(t, []string{"属于"}, triple("马尾松", "属于", "松树"))

	_, err := f.orch.ProposeCandidates(context.Background(), " 马尾松 ", 10)
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
	if f.sim.calls.Load() != 0 {
		t.Fatalf("expected no similarity calls, got %d", f.sim.calls.Load())
	}
}

func TestProposeCandidates_Validation(t *testing.T) {
	f := newFixture(t, []string{"属于"})
	if _, err := f.orch.ProposeCandidates(context.Background(), " 　", 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProposeCandidates_PadsWithOutOfGraph(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"属于"}, triple("松材线虫", "寄生", "松树"))

	got, err := f.orch.ProposeCandidates(ctx, "线虫", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got.Candidates))
	}
	want := []Candidate{
		{Entity: "松材线虫", Similarity: 0.95, InGraph: true},
		{Entity: "病原体", Similarity: 0.90, InGraph: false},
		{Entity: "病原", Similarity: 0.87, InGraph: false},
	}
	if !slices.Equal(got.Candidates, want) {
		t.Fatalf("expected %+v, got %+v", want, got.Candidates)
	}
	if got.Stats != (CandidateStats{InGraphCount: 1, OutGraphCount: 8, TotalReturned: 3, Tier: similarity.TierMock}) {
		t.Fatalf("unexpected stats %+v", got.Stats)
	}
}

func TestProposeCandidates_OverFetchesForInGraph(t *testing.T) {
	ctx := context.Background()
	// 松墨天牛 sits beyond the first topN mock entries for 森林
	f := newFixture(t, []string{"分布于"}, triple("松墨天牛", "分布于", "松林"))

	got, err := f.orch.ProposeCandidates(ctx, "森林", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := []string{got.Candidates[0].Entity, got.Candidates[1].Entity}
	if !slices.Equal(names, []string{"松林", "松墨天牛"}) {
		t.Fatalf("expected in-graph [松林 松墨天牛], got %v", names)
	}
}

func TestProposeCandidates_EmptySimilarityIsNotFound(t *testing.T) {
	f := newFixture(t, []string{"属于"})
	f.orch.similarity = emptySimilarity{}
	if _, err := f.orch.ProposeCandidates(context.Background(), "黑松", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type emptySimilarity struct{}

func (emptySimilarity) MostSimilar(context.Context, string, int) similarity.Result {
	return similarity.Result{Tier: similarity.TierMock}
}

func (emptySimilarity) SimilarityAgainstCandidates(context.Context, string, []string) similarity.Result {
	return similarity.Result{Tier: similarity.TierMock}
}

func TestProposeTriples_NoNeighborsMakesNoInferenceCalls(t *testing.T) {
	f := newFixture(t, []string{"属于"}, triple("马尾松", "属于", "松树"))

	_, err := f.orch.ProposeTriples(context.Background(), "黑松", "湿地松")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.inf.calls.Load() != 0 {
		t.Fatalf("expected zero inference calls, got %d", f.inf.calls.Load())
	}
}

func TestProposeTriples_EmptyVocabulary(t *testing.T) {
	f := newFixture(t, nil, triple("马尾松", "属于", "松树"))

	_, err := f.orch.ProposeTriples(context.Background(), "黑松", "马尾松")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.inf.calls.Load() != 0 {
		t.Fatalf("expected zero inference calls, got %d", f.inf.calls.Load())
	}
}

func TestProposeTriples_DuplicateRecheck(t *testing.T) {
	f := newFixture(t, []string{"属于"}, triple("马尾松", "属于", "松树"))
	if _, err := f.orch.ProposeTriples(context.Background(), "松树", "马尾松"); !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
}

func TestProposeTriples_OrderFollowsNeighbors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"引起", "传播", "易感", "属于", "影响"},
		triple("松材线虫", "寄生", "松树"),
		triple("马尾松", "易感", "松材线虫"),
		triple("松墨天牛", "传播", "松材线虫"),
		triple("温度", "影响", "松材线虫"),
		triple("松材线虫", "引起", "松材线虫病"),
		triple("生物防治", "防治", "松材线虫"),
	)
	f.inf.delay = func() time.Duration { return time.Duration(rand.IntN(5)) * time.Millisecond }

	for _, p := range []int{1, 3, 16} {
		f.orch.parallelism = p
		got, err := f.orch.ProposeTriples(ctx, "湿地松", "松材线虫")
		if err != nil {
			t.Fatalf("parallelism %d: unexpected error: %v", p, err)
		}
		tails := make([]string, len(got.Triples))
		for i, tr := range got.Triples {
			tails[i] = tr.Tail
			if tr.Head != "湿地松" || tr.Tier != inference.TierRules {
				t.Fatalf("unexpected triple %+v", tr)
			}
		}
		want := []string{"松树", "马尾松", "松墨天牛", "温度", "松材线虫病", "生物防治"}
		if !slices.Equal(tails, want) {
			t.Fatalf("parallelism %d: expected %v, got %v", p, want, tails)
		}
		if got.Triples[4].Relation != "易感" {
			t.Fatalf("expected 湿地松 易感 松材线虫病, got %+v", got.Triples[4])
		}
	}
}

func TestCommit_RejectsWhenEntityAppearedAfterProposal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"属于", "易感"}, triple("马尾松", "属于", "松树"))

	if _, err := f.orch.ProposeCandidates(ctx, "黑松", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// another curator adds the entity in between
	if _, err := f.store.InsertTriple(ctx, triple("黑松", "属于", "松树")); err != nil {
		t.Fatal(err)
	}

	_, err := f.orch.Commit(ctx, "黑松", triple("黑松", "易感", "松树"))
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
	if n, _ := f.store.CountTriples(ctx); n != 2 {
		t.Fatalf("expected 2 triples, got %d", n)
	}
}

// staleReads hides existing entities from the read-side checks so only the
// guarded insert can catch the race.
type staleReads struct {
	*memory.GraphMemStorage
}

func (staleReads) EntityExists(context.Context, string) (bool, error) { return false, nil }

func TestCommit_GuardedInsertCatchesRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"属于"}, triple("黑松", "属于", "松树"))
	f.orch.store = staleReads{f.store}

	_, err := f.orch.Commit(ctx, "黑松", triple("黑松", "属于", "松树"))
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
}

func TestCommit_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"属于"}, triple("马尾松", "属于", "松树"))

	tests := []struct {
		name     string
		selected common.Triple
		want     error
	}{
		{name: "relation outside vocabulary", selected: triple("黑松", "相关", "松树"), want: ErrInvalidRelation},
		{name: "empty tail", selected: triple("黑松", "属于", " "), want: ErrInvalidInput},
		{name: "empty relation", selected: triple("黑松", "", "松树"), want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.orch.Commit(ctx, "黑松", tt.selected); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if n, _ := f.store.CountTriples(ctx); n != 1 {
		t.Fatalf("expected nothing inserted, got %d triples", n)
	}
}

func TestCommit_TrustsSelectedTriple(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"属于"}, triple("马尾松", "属于", "松树"))

	got, err := f.orch.Commit(ctx, "黑松", triple("日本黑松", "属于", "松树"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Head != "日本黑松" {
		t.Fatalf("expected caller's head kept, got %+v", got)
	}
}

type brokenStore struct {
	*memory.GraphMemStorage
}

func (brokenStore) NeighborsOf(context.Context, string) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestProposeTriples_StorageFailure(t *testing.T) {
	f := newFixture(t, []string{"属于"})
	f.orch.store = brokenStore{f.store}

	_, err := f.orch.ProposeTriples(context.Background(), "黑松", "马尾松")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("storage failure leaked into validation category: %v", err)
	}
}

func TestRankGraphEntities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"属于"},
		triple("马尾松", "属于", "松树"),
		triple("黑松", "属于", "松树"),
	)

	got, err := f.orch.RankGraphEntities(ctx, "黑松", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Words) != 2 {
		t.Fatalf("expected 2 ranked entities, got %+v", got.Words)
	}
	for _, w := range got.Words {
		if w.Word == "黑松" {
			t.Fatal("entity ranked against itself")
		}
		if w.Score < 0.3 || w.Score > 0.7 {
			t.Fatalf("mock score %f out of range", w.Score)
		}
	}
}
