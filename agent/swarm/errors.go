package swarm

import (
	"fmt"

	"github.com/BaSui01/agentswarm/types"
)

// 哨兵错误，可配合 errors.Is 使用
var (
	// ErrEmptyPool 选择阶段没有任何 Agent
	ErrEmptyPool = types.NewError(types.ErrEmptyPool, "no agents available for task")

	// ErrNoParticipants 全部 Agent 决策失败
	ErrNoParticipants = types.NewError(types.ErrNoParticipants, "all selected agents failed to decide")

	// ErrGeneratorNotSet 未注入文本生成器
	ErrGeneratorNotSet = types.NewError(types.ErrGeneratorNotSet, "text generator is not configured")
)

// AgentFailure 单个 Agent 决策失败记录
type AgentFailure struct {
	AgentID string `json:"agent_id"`
	Role    Role   `json:"role"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (f AgentFailure) Error() string {
	return fmt.Sprintf("agent %s (%s) failed: %v", f.AgentID, f.Role, f.Err)
}

// Unwrap 返回底层错误
func (f AgentFailure) Unwrap() error {
	return f.Err
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	AgentID string
	From    State
	To      State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("agent %s: invalid state transition: %s -> %s", e.AgentID, e.From, e.To)
}

func agentNotFound(agentID string) error {
	return types.NewError(types.ErrAgentNotFound, "agent not found: "+agentID).WithAgent(agentID)
}
