package swarm

// Outcome 动作的真实结果
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// 置信度下限与执行门槛
const (
	confidenceFloor = 0.5
	// DefaultExecutionThreshold 决策置信度低于该值时动作被拒绝
	DefaultExecutionThreshold = 0.7
	lowConfidenceReason       = "Low confidence in action"
)

// adjustConfidence 成功时 min(1, c+lr)，失败时 max(0.5, c-lr)
func adjustConfidence(c, lr float64, outcome Outcome) float64 {
	if outcome == OutcomeSuccess {
		return min(1, c+lr)
	}
	return max(confidenceFloor, c-lr)
}

// LearningUpdate 一次学习更新前后的置信度
type LearningUpdate struct {
	AgentID          string  `json:"agent_id"`
	Action           string  `json:"action"`
	Outcome          Outcome `json:"outcome"`
	ConfidenceBefore float64 `json:"confidence_before"`
	ConfidenceAfter  float64 `json:"confidence_after"`
	// CapabilityBefore/After 仅在 Agent 具备该动作能力时有效
	CapabilityBefore float64 `json:"capability_before,omitempty"`
	CapabilityAfter  float64 `json:"capability_after,omitempty"`
	HasCapability    bool    `json:"has_capability"`
}

// RecordOutcome 按结果调整 Agent 置信度以及决策动作对应的能力置信度。
// 读改写在 Agent 锁内完成。
func RecordOutcome(a *Agent, d Decision, outcome Outcome) LearningUpdate {
	a.mu.Lock()
	defer a.mu.Unlock()

	update := LearningUpdate{
		AgentID:          a.ID,
		Action:           d.Action,
		Outcome:          outcome,
		ConfidenceBefore: a.confidence,
	}
	a.confidence = adjustConfidence(a.confidence, a.LearningRate, outcome)
	update.ConfidenceAfter = a.confidence

	kind := ActionKind(d.Action)
	if c, ok := a.capabilities[kind]; ok {
		update.HasCapability = true
		update.CapabilityBefore = c
		a.capabilities[kind] = adjustConfidence(c, a.LearningRate, outcome)
		update.CapabilityAfter = a.capabilities[kind]
	}
	return update
}
