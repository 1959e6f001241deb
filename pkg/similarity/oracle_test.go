package similarity

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/embedding"
)

type fakeSpace struct {
	name      string
	vocab     map[string]bool
	neighbors []common.ScoredWord
	sims      map[string]float64
	nnErr     error
	simErr    error
	nnCalls   int
}

func (f *fakeSpace) Name() string { return f.name }

func (f *fakeSpace) Contains(_ context.Context, w string) bool { return f.vocab[w] }

func (f *fakeSpace) NearestNeighbors(_ context.Context, _ string, topN int) ([]common.ScoredWord, error) {
	f.nnCalls++
	if f.nnErr != nil {
		return nil, f.nnErr
	}
	return f.neighbors[:min(topN, len(f.neighbors))], nil
}

func (f *fakeSpace) Similarity(_ context.Context, _, b string) (float64, error) {
	if f.simErr != nil {
		return 0, f.simErr
	}
	return f.sims[b], nil
}

func TestMostSimilar_FirstContainingSpaceWins(t *testing.T) {
	primary := &fakeSpace{
		name:      "primary",
		vocab:     map[string]bool{"黑松": true},
		neighbors: []common.ScoredWord{{Word: "马尾松", Score: 0.8}},
	}
	fallback := &fakeSpace{
		name:      "fallback",
		vocab:     map[string]bool{"黑松": true},
		neighbors: []common.ScoredWord{{Word: "a", Score: 0.9}, {Word: "b", Score: 0.7}},
	}
	o := New(primary, nil, fallback)

	got := o.MostSimilar(context.Background(), "黑松", 10)
	if got.Tier != "primary" {
		t.Fatalf("expected tier primary, got %s", got.Tier)
	}
	if len(got.Words) != 1 {
		t.Fatalf("expected primary's single neighbour without fall-through, got %+v", got.Words)
	}
	if fallback.nnCalls != 0 {
		t.Fatalf("expected fallback untouched, got %d calls", fallback.nnCalls)
	}
}

func TestMostSimilar_SkipsFailingAndUnknownSpaces(t *testing.T) {
	broken := &fakeSpace{name: "primary", vocab: map[string]bool{"线虫": true}, nnErr: errors.New("corrupt")}
	other := &fakeSpace{name: "fallback", vocab: map[string]bool{}}
	o := New(broken, other)

	got := o.MostSimilar(context.Background(), "线虫", 3)
	if got.Tier != TierMock {
		t.Fatalf("expected mock tier, got %s", got.Tier)
	}
	want := []common.ScoredWord{
		{Word: "松材线虫", Score: 0.95}, {Word: "病原体", Score: 0.90}, {Word: "病原", Score: 0.87},
	}
	if !reflect.DeepEqual(got.Words, want) {
		t.Fatalf("expected %+v, got %+v", want, got.Words)
	}
}

func TestMostSimilar_ZeroSpacesIsDeterministic(t *testing.T) {
	o := New()
	words := []string{"黑松", "湿地松", "完全未知的词", "森林", ""}
	for _, w := range words {
		for _, n := range []int{0, 1, 5, 30} {
			first := o.MostSimilar(context.Background(), w, n)
			second := o.MostSimilar(context.Background(), w, n)
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("%q/%d: expected identical results, got %+v and %+v", w, n, first, second)
			}
			if len(first.Words) > n {
				t.Fatalf("%q/%d: expected at most %d entries, got %d", w, n, n, len(first.Words))
			}
		}
	}
}

func TestMockMostSimilar(t *testing.T) {
	tests := []struct {
		name      string
		word      string
		topN      int
		wantFirst string
		wantScore float64
		wantLen   int
	}{
		{name: "preset group", word: "天牛", topN: 10, wantFirst: "松墨天牛", wantScore: 0.92, wantLen: 10},
		{name: "mapped word heads default list", word: "黑松", topN: 30, wantFirst: "马尾松", wantScore: 0.90, wantLen: 10},
		{name: "mapped to word outside defaults", word: "森林", topN: 30, wantFirst: "松林", wantScore: 0.90, wantLen: 11},
		{name: "generic default", word: "未知", topN: 3, wantFirst: "松树", wantScore: 0.75, wantLen: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MockMostSimilar(tt.word, tt.topN)
			if len(got) != tt.wantLen {
				t.Fatalf("expected %d entries, got %d: %+v", tt.wantLen, len(got), got)
			}
			if got[0].Word != tt.wantFirst || got[0].Score != tt.wantScore {
				t.Fatalf("expected head %s/%.2f, got %+v", tt.wantFirst, tt.wantScore, got[0])
			}
			seen := map[string]bool{}
			for _, w := range got {
				if seen[w.Word] {
					t.Fatalf("duplicate %s in %+v", w.Word, got)
				}
				seen[w.Word] = true
			}
		})
	}
}

func TestSimilarityAgainstCandidates_ActiveSpace(t *testing.T) {
	space := &fakeSpace{
		name:  "primary",
		vocab: map[string]bool{"黑松": true, "马尾松": true, "松树": true},
		sims:  map[string]float64{"马尾松": 0.8, "松树": 0.6},
	}
	o := New(space)

	got := o.SimilarityAgainstCandidates(context.Background(), "黑松", []string{"松树", "温度", "马尾松"})
	want := Result{Tier: "primary", Words: []common.ScoredWord{
		{Word: "马尾松", Score: 0.8}, {Word: "松树", Score: 0.6}, {Word: "温度", Score: AbsentCandidateScore},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSimilarityAgainstCandidates_ScoringErrorIsZero(t *testing.T) {
	space := &fakeSpace{
		name:   "primary",
		vocab:  map[string]bool{"黑松": true, "马尾松": true},
		simErr: errors.New("boom"),
	}
	got := New(space).SimilarityAgainstCandidates(context.Background(), "黑松", []string{"温度", "马尾松"})
	if got.Words[0].Word != "温度" || got.Words[1].Score != 0 {
		t.Fatalf("expected absent candidate first and failed one at 0, got %+v", got.Words)
	}
}

func TestSimilarityAgainstCandidates_Mock(t *testing.T) {
	o := New(&fakeSpace{name: "primary", vocab: map[string]bool{}})
	candidates := []string{"松树", "马尾松", "松材线虫", "温度", "松墨天牛"}

	first := o.SimilarityAgainstCandidates(context.Background(), "新词", candidates)
	if first.Tier != TierMock {
		t.Fatalf("expected mock tier, got %s", first.Tier)
	}
	if len(first.Words) != len(candidates) {
		t.Fatalf("expected %d scores, got %d", len(candidates), len(first.Words))
	}

	byWord := map[string]float64{}
	for i, w := range first.Words {
		if w.Score < 0.3 || w.Score > 0.7 {
			t.Fatalf("score %f out of [0.3, 0.7]", w.Score)
		}
		if i > 0 && first.Words[i-1].Score < w.Score {
			t.Fatalf("expected descending scores, got %+v", first.Words)
		}
		byWord[w.Word] = w.Score
	}

	// same pair, different surrounding list
	second := o.SimilarityAgainstCandidates(context.Background(), "新词", []string{"温度"})
	if second.Words[0].Score != byWord["温度"] {
		t.Fatalf("expected stable score %f, got %f", byWord["温度"], second.Words[0].Score)
	}
}

func TestSimilarityAgainstCandidates_Empty(t *testing.T) {
	got := New().SimilarityAgainstCandidates(context.Background(), "黑松", nil)
	if got.Words == nil || len(got.Words) != 0 {
		t.Fatalf("expected empty non-nil result, got %+v", got.Words)
	}
}

func TestOracle_WithKeyedVectors(t *testing.T) {
	kv := embedding.NewKeyedVectors("primary", 2)
	for w, v := range map[string][]float32{
		"马尾松": {1, 0},
		"黑松":  {0.9, 0.2},
		"温度":  {0, 1},
	} {
		if err := kv.Add(w, v); err != nil {
			t.Fatal(err)
		}
	}
	o := New(kv)

	got := o.MostSimilar(context.Background(), "马尾松", 1)
	if got.Tier != "primary" || len(got.Words) != 1 || got.Words[0].Word != "黑松" {
		t.Fatalf("expected 黑松 from primary, got %+v", got)
	}

	if tiers := o.Tiers(); !reflect.DeepEqual(tiers, []string{"primary", TierMock}) {
		t.Fatalf("expected [primary mock], got %v", tiers)
	}
}
