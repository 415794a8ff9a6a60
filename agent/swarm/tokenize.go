package swarm

import "strings"

// keywords 将文本按空白切分为小写关键词
func keywords(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func tokenSet(s string) map[string]struct{} {
	words := keywords(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jaccard 计算两段文本词集合的 Jaccard 相似度。两者都为空时返回 0。
func jaccard(a, b string) float64 {
	sa, sb := tokenSet(a), tokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}
