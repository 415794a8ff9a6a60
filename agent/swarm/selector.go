package swarm

import (
	"sort"
	"strings"
)

// 上下文加分
const (
	bonusRoleKeyword = 2.0
	bonusSpecKeyword = 1.0
	bonusEmailType   = 3.0
	bonusUrgent      = 2.0
	bonusResearch    = 3.0
	bonusTone        = 2.0
)

// ScoreAgent 计算 Agent 对任务的相关性得分（原始分 × 置信度）
func ScoreAgent(task Task, a *Agent) float64 {
	return rawScore(task, a) * a.Confidence()
}

func rawScore(task Task, a *Agent) float64 {
	role := string(a.Role)
	specs := make([]string, len(a.Specializations))
	for i, s := range a.Specializations {
		specs[i] = strings.ToLower(s)
	}

	score := 0.0
	for _, kw := range keywords(task.Description) {
		if strings.Contains(role, kw) {
			score += bonusRoleKeyword
		}
		for _, s := range specs {
			if strings.Contains(s, kw) {
				score += bonusSpecKeyword
				break
			}
		}
	}

	if emailType, ok := contextString(task.Context, "email_type", "emailType"); ok && hasSpec(specs, emailType) {
		score += bonusEmailType
	}
	if contextBool(task.Context, "urgent") && a.Role == RoleScheduler {
		score += bonusUrgent
	}
	if contextBool(task.Context, "needs_research", "requiresResearch") && a.Role == RoleResearcher {
		score += bonusResearch
	}
	if tone, ok := contextString(task.Context, "tone"); ok && hasSpec(specs, tone) {
		score += bonusTone
	}
	return score
}

// SelectAgents 选出得分最高的 min(RequiredAgentCount, len(pool)) 个 Agent，
// 按得分降序，同分按 ID 升序
func SelectAgents(task Task, pool []*Agent) []*Agent {
	type scored struct {
		agent *Agent
		score float64
	}
	ranked := make([]scored, len(pool))
	for i, a := range pool {
		ranked[i] = scored{agent: a, score: ScoreAgent(task, a)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].agent.ID < ranked[j].agent.ID
	})

	n := task.RequiredAgentCount
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	out := make([]*Agent, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].agent
	}
	return out
}

func hasSpec(specs []string, value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, s := range specs {
		if s == value {
			return true
		}
	}
	return false
}

func contextString(ctx map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := ctx[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func contextBool(ctx map[string]any, keys ...string) bool {
	for _, k := range keys {
		v, ok := ctx[k]
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			if b {
				return true
			}
		case string:
			if strings.EqualFold(b, "true") {
				return true
			}
		}
	}
	return false
}
