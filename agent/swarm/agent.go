package swarm

import (
	"sort"
	"sync"
)

// =============================================================================
// 🔄 生命周期状态
// =============================================================================

// State 定义 Agent 生命周期状态
type State string

const (
	StateIdle      State = "idle"      // 空闲
	StateDeciding  State = "deciding"  // 正在产出决策
	StateValidated State = "validated" // 决策已通过交叉验证
	StateExecuting State = "executing" // 正在执行动作
	StateSucceeded State = "succeeded" // 动作执行成功
	StateFailed    State = "failed"    // 动作执行失败
	StateRejected  State = "rejected"  // 置信度不足，动作被拒绝
)

// validTransitions 定义合法的状态转换。
// 常驻名册中的 Agent 可能同时服务多个任务，因此 Deciding/Executing 允许自环。
var validTransitions = map[State][]State{
	StateIdle:      {StateDeciding, StateExecuting, StateRejected},
	StateDeciding:  {StateDeciding, StateValidated, StateIdle},
	StateValidated: {StateDeciding, StateExecuting, StateRejected, StateIdle},
	StateExecuting: {StateExecuting, StateSucceeded, StateFailed},
	StateSucceeded: {StateIdle, StateDeciding, StateExecuting, StateRejected},
	StateFailed:    {StateIdle, StateDeciding, StateExecuting, StateRejected},
	StateRejected:  {StateIdle, StateDeciding, StateExecuting, StateRejected},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// =============================================================================
// 🤖 Agent
// =============================================================================

// Agent 群体中的单个决策者。
// 置信度只能由交叉验证回写与学习循环修改，所有写入都经过 Agent 自身的锁。
type Agent struct {
	ID              string
	Role            Role
	Specializations []string
	LearningRate    float64

	mu           sync.RWMutex
	confidence   float64
	capabilities map[ActionKind]float64
	defaultKind  ActionKind
	state        State
}

// NewAgent 创建 Agent。置信度被截断到 [0,1]，学习率非法时使用 0.1。
func NewAgent(id string, role Role, specializations []string, confidence, learningRate float64) *Agent {
	if learningRate <= 0 || learningRate > 1 {
		learningRate = 0.1
	}
	specs := make([]string, len(specializations))
	copy(specs, specializations)
	return &Agent{
		ID:              id,
		Role:            role,
		Specializations: specs,
		LearningRate:    learningRate,
		confidence:      clamp(confidence, 0, 1),
		capabilities:    make(map[ActionKind]float64),
		state:           StateIdle,
	}
}

// WithCapability 为 Agent 增加一项能力及其置信度。第一项能力作为默认动作。
func (a *Agent) WithCapability(kind ActionKind, confidence float64) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.defaultKind == "" {
		a.defaultKind = kind
	}
	a.capabilities[kind] = clamp(confidence, 0, 1)
	return a
}

// PrimarySpecialization 返回第一个专长
func (a *Agent) PrimarySpecialization() string {
	if len(a.Specializations) == 0 {
		return ""
	}
	return a.Specializations[0]
}

// Confidence 返回当前置信度
func (a *Agent) Confidence() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.confidence
}

func (a *Agent) setConfidence(c float64) {
	a.mu.Lock()
	a.confidence = clamp(c, 0, 1)
	a.mu.Unlock()
}

// CapabilityConfidence 返回某项能力的置信度
func (a *Agent) CapabilityConfidence(kind ActionKind) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.capabilities[kind]
	return c, ok
}

// Capabilities 返回能力列表（按名称排序）
func (a *Agent) Capabilities() []ActionKind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	kinds := make([]ActionKind, 0, len(a.capabilities))
	for k := range a.capabilities {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// CapabilitySnapshot 返回能力置信度副本
func (a *Agent) CapabilitySnapshot() map[string]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]float64, len(a.capabilities))
	for k, v := range a.capabilities {
		out[string(k)] = v
	}
	return out
}

// DefaultAction 返回默认动作，没有能力的 Agent 返回空
func (a *Agent) DefaultAction() ActionKind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.defaultKind
}

// resolveAction 将模型给出的动作名映射到 Agent 的能力。
// 无能力的 Agent 原样保留；有能力的 Agent 只接受自身能力，否则回落到默认动作。
func (a *Agent) resolveAction(raw string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.capabilities) == 0 {
		return raw
	}
	kind := ParseActionKind(raw)
	if _, ok := a.capabilities[kind]; ok {
		return string(kind)
	}
	return string(a.defaultKind)
}

// decisionConfidence 决策置信度：有对应能力时取能力置信度，否则取 Agent 置信度
func (a *Agent) decisionConfidence(action string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if c, ok := a.capabilities[ActionKind(action)]; ok {
		return c
	}
	return a.confidence
}

// restore 用快照覆盖置信度，范围截断到 [floor,1]
func (a *Agent) restore(confidence float64, capabilities map[string]float64, floor float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.confidence = clamp(confidence, floor, 1)
	for k, v := range capabilities {
		kind := ActionKind(k)
		if _, ok := a.capabilities[kind]; ok {
			a.capabilities[kind] = clamp(v, floor, 1)
		}
	}
}

// State 返回当前生命周期状态
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// transition 执行状态转换
func (a *Agent) transition(to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !CanTransition(a.state, to) {
		return ErrInvalidTransition{AgentID: a.ID, From: a.state, To: to}
	}
	a.state = to
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
