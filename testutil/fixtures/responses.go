// Package fixtures 提供群体共识测试使用的样例数据。
package fixtures

import "github.com/BaSui01/agentswarm/testutil"

// DecisionJSON 构造一个 Agent 决策输出
func DecisionJSON(response, reasoning, action string, alternatives []string, impact string) string {
	if alternatives == nil {
		alternatives = []string{}
	}
	return testutil.MustJSON(map[string]any{
		"response":     response,
		"reasoning":    reasoning,
		"action":       action,
		"alternatives": alternatives,
		"impact":       impact,
	})
}

// SimpleDecision 构造只含回复文本的决策输出
func SimpleDecision(response string) string {
	return DecisionJSON(response, "because "+response, "respond", nil, "medium")
}

// SynthesisJSON 构造一个综合输出
func SynthesisJSON(recommendation, rationale string) string {
	return testutil.MustJSON(map[string]string{
		"recommendation": recommendation,
		"rationale":      rationale,
	})
}

// AlternativesList 构造备选方案输出（带列表标记）
const AlternativesList = `1. Offer a phone call instead
- Delay the reply until Monday
* Forward to the account manager

4. Escalate to legal`
