// Package similarity ranks candidate entity names by semantic closeness to a
// word. Answers come from the first embedding space that knows the word and
// fall back to a deterministic mock when none does.
package similarity

import (
	"context"
	"slices"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/embedding"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/metrics"
)

// TierMock names the deterministic last tier.
const TierMock = "mock"

// AbsentCandidateScore is assigned to a candidate missing from the active
// space's vocabulary.
const AbsentCandidateScore = 0.1

// Result is an ordered answer tagged with the tier that produced it.
type Result struct {
	Tier  string              `json:"tier"`
	Words []common.ScoredWord `json:"words"`
}

// Oracle is an ordered chain of embedding spaces terminated by the mock tier.
type Oracle struct {
	spaces []embedding.Space
}

// New creates an Oracle trying spaces in the given order. Nil spaces are
// skipped so unloaded tiers can be passed through unchanged.
func New(spaces ...embedding.Space) *Oracle {
	o := &Oracle{}
	for _, s := range spaces {
		if s != nil {
			o.spaces = append(o.spaces, s)
		}
	}
	return o
}

// Tiers lists the tier names in priority order, ending with the mock tier.
func (o *Oracle) Tiers() []string {
	tiers := make([]string, 0, len(o.spaces)+1)
	for _, s := range o.spaces {
		tiers = append(tiers, s.Name())
	}
	return append(tiers, TierMock)
}

// MostSimilar returns up to topN neighbours of word from the first space
// containing it. A space that fails is treated as unavailable.
func (o *Oracle) MostSimilar(ctx context.Context, word string, topN int) Result {
	done := metrics.TimeOracle("similarity")

	for _, s := range o.spaces {
		if !s.Contains(ctx, word) {
			continue
		}
		words, err := s.NearestNeighbors(ctx, word, topN)
		if err != nil {
			logger.Warn("[Similarity][MostSimilar] space unavailable, trying next tier",
				"space", s.Name(), "word", word, "err", err)
			continue
		}
		done(s.Name())
		return Result{Tier: s.Name(), Words: words}
	}

	done(TierMock)
	return Result{Tier: TierMock, Words: MockMostSimilar(word, topN)}
}

// SimilarityAgainstCandidates scores every candidate against word in the
// first space containing word, or with the mock scorer when none does.
// The result is sorted by descending score, ties keeping input order.
func (o *Oracle) SimilarityAgainstCandidates(
	ctx context.Context,
	word string,
	candidates []string,
) Result {
	done := metrics.TimeOracle("similarity")

	var active embedding.Space
	for _, s := range o.spaces {
		if s.Contains(ctx, word) {
			active = s
			break
		}
	}

	if len(candidates) == 0 {
		tier := TierMock
		if active != nil {
			tier = active.Name()
		}
		done(tier)
		return Result{Tier: tier, Words: []common.ScoredWord{}}
	}

	out := make([]common.ScoredWord, 0, len(candidates))
	tier := TierMock
	if active == nil {
		for _, c := range candidates {
			out = append(out, common.ScoredWord{Word: c, Score: MockScore(word, c)})
		}
	} else {
		tier = active.Name()
		for _, c := range candidates {
			out = append(out, common.ScoredWord{Word: c, Score: scoreIn(ctx, active, word, c)})
		}
	}

	slices.SortStableFunc(out, func(a, b common.ScoredWord) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	done(tier)
	return Result{Tier: tier, Words: out}
}

func scoreIn(ctx context.Context, s embedding.Space, word, candidate string) float64 {
	if !s.Contains(ctx, candidate) {
		return AbsentCandidateScore
	}
	score, err := s.Similarity(ctx, word, candidate)
	if err != nil {
		logger.Error("[Similarity][SimilarityAgainstCandidates] scoring failed",
			"space", s.Name(), "word", word, "candidate", candidate, "err", err)
		return 0
	}
	return score
}
