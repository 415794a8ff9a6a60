package swarm

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// 角色对齐分
const (
	sameRoleAlignment  = 0.8
	crossRoleAlignment = 0.6
)

// CrossValidate 两两互评：对每个决策 i，与其他每个决策 j 的同伴分为
// (jaccard(text_i, text_j) + roleAlignment(i, j)) / 2，取平均作为 Vote，
// 新置信度为 (原置信度 + 平均分) / 2。
// 单个决策没有同伴，置信度不变，Vote 等于置信度。
// parallelism <= 0 时不限制并发。输入不被修改。
func CrossValidate(ctx context.Context, decisions []Decision, parallelism int) []Decision {
	out := make([]Decision, len(decisions))
	copy(out, decisions)
	if len(out) == 0 {
		return out
	}
	if len(out) == 1 {
		out[0].Vote = out[0].Confidence
		return out
	}

	texts := make([]string, len(decisions))
	for i, d := range decisions {
		texts[i] = d.Text()
	}

	g, _ := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range decisions {
		g.Go(func() error {
			sum := 0.0
			for j := range decisions {
				if j == i {
					continue
				}
				sum += peerScore(decisions[i], decisions[j], texts[i], texts[j])
			}
			avg := sum / float64(len(decisions)-1)
			out[i].Vote = avg
			out[i].Confidence = clamp((decisions[i].Confidence+avg)/2, 0, 1)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func peerScore(a, b Decision, textA, textB string) float64 {
	alignment := crossRoleAlignment
	if a.Role == b.Role {
		alignment = sameRoleAlignment
	}
	return (jaccard(textA, textB) + alignment) / 2
}
