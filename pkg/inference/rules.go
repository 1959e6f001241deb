package inference

import (
	"slices"
	"strings"
)

var (
	treeKeywords        = []string{"松", "树", "林"}
	insectKeywords      = []string{"天牛", "昆虫", "媒介"}
	diseaseKeywords     = []string{"线虫", "病", "症状"}
	environmentKeywords = []string{"温度", "湿度", "气候", "环境"}
)

const (
	relSusceptible = "易感"
	relBelongsTo   = "属于"
	relTransmits   = "传播"
	relAffects     = "影响"
)

// RuleRelation classifies a by keyword and returns the group's preferred
// relation when valid offers it, else valid[0]. valid must be non-empty.
func RuleRelation(a, c string, valid []string) string {
	pick := func(rel string) (string, bool) {
		return rel, slices.Contains(valid, rel)
	}

	switch {
	case containsAny(a, treeKeywords):
		if containsAny(c, diseaseKeywords) {
			if rel, ok := pick(relSusceptible); ok {
				return rel
			}
		}
		if containsAny(c, treeKeywords) {
			if rel, ok := pick(relBelongsTo); ok {
				return rel
			}
		}
	case containsAny(a, insectKeywords):
		if rel, ok := pick(relTransmits); ok {
			return rel
		}
	case containsAny(a, environmentKeywords):
		if rel, ok := pick(relAffects); ok {
			return rel
		}
	}

	return valid[0]
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
