package store

import (
	"context"
	"fmt"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

// DefaultRelations is the initial relation vocabulary.
var DefaultRelations = []string{
	"引起", "传播", "易感", "属于", "影响", "防治", "寄生", "媒介", "危害", "分布于",
}

// SampleTriples is the initial pine wilt disease graph.
var SampleTriples = []common.Triple{
	{Head: "松材线虫", Relation: "寄生", Tail: "松树"},
	{Head: "松材线虫", Relation: "引起", Tail: "松材线虫病"},
	{Head: "马尾松", Relation: "易感", Tail: "松材线虫"},
	{Head: "黑松", Relation: "易感", Tail: "松材线虫"},
	{Head: "马尾松", Relation: "属于", Tail: "松树"},
	{Head: "黑松", Relation: "属于", Tail: "松树"},
	{Head: "赤松", Relation: "属于", Tail: "松树"},
	{Head: "松墨天牛", Relation: "传播", Tail: "松材线虫"},
	{Head: "松墨天牛", Relation: "媒介", Tail: "松材线虫病"},
	{Head: "温度", Relation: "影响", Tail: "松材线虫"},
	{Head: "温度", Relation: "影响", Tail: "松墨天牛"},
	{Head: "湿度", Relation: "影响", Tail: "松材线虫病"},
	{Head: "松材线虫病", Relation: "分布于", Tail: "松林"},
	{Head: "松墨天牛", Relation: "分布于", Tail: "松林"},
	{Head: "化学防治", Relation: "防治", Tail: "松墨天牛"},
	{Head: "生物防治", Relation: "防治", Tail: "松材线虫"},
	{Head: "检疫措施", Relation: "防治", Tail: "松材线虫病"},
	{Head: "萎蔫", Relation: "属于", Tail: "松材线虫病"},
	{Head: "针叶变色", Relation: "属于", Tail: "松材线虫病"},
	{Head: "树脂分泌异常", Relation: "属于", Tail: "松材线虫病"},
}

// SeedResult reports what Seed wrote.
type SeedResult struct {
	Relations int `json:"relations"`
	Triples   int `json:"triples"`
}

// Seed makes sure every relation of relations is in the vocabulary and, when
// the graph holds no triples yet, inserts triples.
func Seed(
	ctx context.Context,
	s GraphStorage,
	relations []string,
	triples []common.Triple,
) (SeedResult, error) {
	res := SeedResult{}
	for _, r := range relations {
		if err := s.AddRelation(ctx, r); err != nil {
			return res, fmt.Errorf("add relation %s: %w", r, err)
		}
		res.Relations++
	}

	count, err := s.CountTriples(ctx)
	if err != nil {
		return res, err
	}
	if count > 0 {
		return res, nil
	}

	for _, t := range triples {
		if _, err := s.InsertTriple(ctx, t); err != nil {
			return res, fmt.Errorf("insert triple %s-%s-%s: %w", t.Head, t.Relation, t.Tail, err)
		}
		res.Triples++
	}
	return res, nil
}
