package swarm

import (
	"strings"
	"time"
)

// Task 一次需要群体共识的请求，构造后不可修改
type Task struct {
	ID                 string         `json:"id"`
	Description        string         `json:"description"`
	Context            map[string]any `json:"context,omitempty"`
	RequiredAgentCount int            `json:"required_agent_count"`
	ConsensusThreshold float64        `json:"consensus_threshold"`
}

// TaskOptions ProcessTask 的可选参数，零值使用引擎默认值
type TaskOptions struct {
	AgentCount         int     `json:"agent_count,omitempty"`
	ConsensusThreshold float64 `json:"consensus_threshold,omitempty"`
}

// Decision 单个 Agent 对单个任务的决策。各阶段返回副本，不原地修改。
type Decision struct {
	TaskID               string         `json:"task_id,omitempty"`
	AgentID              string         `json:"agent_id"`
	Role                 Role           `json:"role"`
	Specializations      []string       `json:"specializations"`
	Action               string         `json:"action,omitempty"`
	Params               map[string]any `json:"params,omitempty"`
	Response             string         `json:"response"`
	Reasoning            string         `json:"reasoning"`
	Confidence           float64        `json:"confidence"`
	// CapabilityConfidence 提出决策时该动作的能力置信度，执行门槛据此判断；为 0 时回退到 Confidence
	CapabilityConfidence float64        `json:"capability_confidence,omitempty"`
	Vote                 float64        `json:"vote"`
	Alternatives         []string       `json:"alternatives,omitempty"`
	Impact               Impact         `json:"impact"`
}

// Text 返回用于相似度比较与综合的决策文本
func (d Decision) Text() string {
	if strings.TrimSpace(d.Response) != "" {
		return d.Response
	}
	return d.Reasoning
}

// gateConfidence 执行门槛使用的置信度
func (d Decision) gateConfidence() float64 {
	if d.CapabilityConfidence > 0 {
		return d.CapabilityConfidence
	}
	return d.Confidence
}

// PrimarySpecialization 返回决策者的第一个专长
func (d Decision) PrimarySpecialization() string {
	if len(d.Specializations) == 0 {
		return ""
	}
	return d.Specializations[0]
}

// VoteResult 按 (角色, 主专长) 聚合的投票
type VoteResult struct {
	Option    string  `json:"option"`
	VoteCount int     `json:"vote_count"`
	Weight    float64 `json:"weight"`
}

// ConsensusResult 一次任务的最终结果
type ConsensusResult struct {
	TaskID         string        `json:"task_id"`
	Consensus      string        `json:"consensus"`
	Confidence     float64       `json:"confidence"`
	AgentDecisions []Decision    `json:"agent_decisions"`
	Alternatives   []string      `json:"alternatives"`
	Reasoning      string        `json:"reasoning"`
	VotingResults  []VoteResult  `json:"voting_results"`
	Degraded       bool          `json:"degraded"`
	ThresholdMet   bool          `json:"threshold_met"`
	SelectedAgents int           `json:"selected_agents"`
	FailedAgents   []string      `json:"failed_agents,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Email 常驻群体处理的邮件
type Email struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
}

// DecisionOutcome 常驻群体对一封邮件的决策结果
type DecisionOutcome struct {
	TaskID     string     `json:"task_id"`
	Decisions  []Decision `json:"decisions"`
	Consensus  string     `json:"consensus"`
	Confidence float64    `json:"confidence"`
	// Action 置信度最高的决策建议的动作，ActingAgentID 为其提出者
	Action        ActionKind `json:"action"`
	ActingAgentID string     `json:"acting_agent_id"`
	Degraded      bool       `json:"degraded"`
}

// TopDecision 返回 ActingAgentID 对应的决策
func (o *DecisionOutcome) TopDecision() (Decision, bool) {
	for _, d := range o.Decisions {
		if d.AgentID == o.ActingAgentID {
			return d, true
		}
	}
	return Decision{}, false
}
