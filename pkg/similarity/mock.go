package similarity

import (
	"hash/fnv"
	"math/rand/v2"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

const (
	mockScoreMin   = 0.3
	mockScoreRange = 0.4
	mockMappedHead = 0.90
)

// Preset neighbour lists for words the domain cares about most.
var presetNeighbors = map[string][]common.ScoredWord{
	"湿地松": {
		{Word: "马尾松", Score: 0.89}, {Word: "黑松", Score: 0.85}, {Word: "赤松", Score: 0.82},
		{Word: "华山松", Score: 0.79}, {Word: "落叶松", Score: 0.76}, {Word: "红松", Score: 0.74},
		{Word: "云杉", Score: 0.71}, {Word: "冷杉", Score: 0.68}, {Word: "雪松", Score: 0.65},
		{Word: "松树", Score: 0.62},
	},
	"天牛": {
		{Word: "松墨天牛", Score: 0.92}, {Word: "媒介昆虫", Score: 0.87}, {Word: "传播媒介", Score: 0.84},
		{Word: "昆虫", Score: 0.79}, {Word: "害虫", Score: 0.76}, {Word: "虫媒", Score: 0.73},
		{Word: "天敌", Score: 0.70}, {Word: "寄主", Score: 0.67}, {Word: "载体", Score: 0.64},
		{Word: "中间宿主", Score: 0.61},
	},
	"线虫": {
		{Word: "松材线虫", Score: 0.95}, {Word: "病原体", Score: 0.90}, {Word: "病原", Score: 0.87},
		{Word: "寄生虫", Score: 0.83}, {Word: "微生物", Score: 0.78}, {Word: "致病菌", Score: 0.75},
		{Word: "病菌", Score: 0.72}, {Word: "虫害", Score: 0.68}, {Word: "病害", Score: 0.65},
		{Word: "病原物", Score: 0.62},
	},
	"高温": {
		{Word: "温度", Score: 0.88}, {Word: "气候", Score: 0.85}, {Word: "环境温度", Score: 0.82},
		{Word: "热量", Score: 0.78}, {Word: "气温", Score: 0.75}, {Word: "湿度", Score: 0.72},
		{Word: "低温", Score: 0.69}, {Word: "温差", Score: 0.66}, {Word: "环境条件", Score: 0.63},
		{Word: "气候条件", Score: 0.60},
	},
}

// Single closest graph entity for common domain words.
var presetMapping = map[string]string{
	"湿地松": "马尾松", "黑松": "马尾松", "红松": "马尾松", "华山松": "马尾松", "落叶松": "马尾松",
	"赤松": "黑松", "日本松": "黑松",
	"雪松": "松树", "云杉": "松树", "冷杉": "松树",
	"天牛": "松墨天牛", "媒介昆虫": "松墨天牛", "传播媒介": "松墨天牛",
	"线虫": "松材线虫", "病原体": "松材线虫", "病原": "松材线虫",
	"高温": "温度", "低温": "温度", "湿度": "温度", "气候": "温度",
	"森林": "松林", "林区": "松林", "山区": "松林",
}

var defaultNeighbors = []common.ScoredWord{
	{Word: "松树", Score: 0.75}, {Word: "马尾松", Score: 0.72}, {Word: "松材线虫", Score: 0.70},
	{Word: "松墨天牛", Score: 0.67}, {Word: "感染", Score: 0.64}, {Word: "传播", Score: 0.61},
	{Word: "防治", Score: 0.58}, {Word: "病害", Score: 0.55}, {Word: "林木", Score: 0.52},
	{Word: "疫情", Score: 0.50},
}

// MockMostSimilar returns the preset neighbours of word, truncated to topN.
// Output depends only on the arguments.
func MockMostSimilar(word string, topN int) []common.ScoredWord {
	if topN <= 0 {
		return []common.ScoredWord{}
	}

	var list []common.ScoredWord
	if preset, ok := presetNeighbors[word]; ok {
		list = preset
	} else if mapped, ok := presetMapping[word]; ok {
		list = make([]common.ScoredWord, 0, len(defaultNeighbors)+1)
		list = append(list, common.ScoredWord{Word: mapped, Score: mockMappedHead})
		for _, w := range defaultNeighbors {
			if w.Word != mapped && w.Word != word {
				list = append(list, w)
			}
		}
	} else {
		list = make([]common.ScoredWord, 0, len(defaultNeighbors))
		for _, w := range defaultNeighbors {
			if w.Word != word {
				list = append(list, w)
			}
		}
	}

	n := min(topN, len(list))
	out := make([]common.ScoredWord, n)
	copy(out, list[:n])
	return out
}

// MockScore is a placeholder similarity in [0.3, 0.7) derived from a per-word
// seed and the candidate, stable for a given pair.
func MockScore(word, candidate string) float64 {
	seed := fnv64(word) % 10000
	r := rand.New(rand.NewPCG(seed, fnv64(candidate)))
	return mockScoreMin + mockScoreRange*r.Float64()
}

func fnv64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
