package swarm

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
)

// Registry 能力注册表，持有 Agent 池
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry 创建注册表
func NewRegistry(agents ...*Agent) *Registry {
	r := &Registry{agents: make(map[string]*Agent, len(agents))}
	for _, a := range agents {
		r.agents[a.ID] = a
	}
	return r
}

// Register 注册 Agent，ID 重复时返回错误
func (r *Registry) Register(a *Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.ID]; exists {
		return fmt.Errorf("agent %s already registered", a.ID)
	}
	r.agents[a.ID] = a
	return nil
}

// Get 按 ID 查找 Agent
func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// ListAgents 返回全部 Agent，按 ID 稳定排序
func (r *Registry) ListAgents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len 返回 Agent 数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// =============================================================================
// 🏭 池构造
// =============================================================================

// PoolConfig 池构造参数
type PoolConfig struct {
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	LearningRate  float64 `json:"learning_rate"`
	// Rand 用于初始置信度随机化，nil 时使用非确定种子
	Rand *rand.Rand `json:"-"`
}

// DefaultPoolConfig 返回默认池参数
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinConfidence: 0.7,
		MaxConfidence: 1.0,
		LearningRate:  0.1,
	}
}

func (c PoolConfig) randomConfidence() func() float64 {
	rng := c.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	lo, hi := c.MinConfidence, c.MaxConfidence
	if hi < lo {
		lo, hi = hi, lo
	}
	return func() float64 {
		return lo + rng.Float64()*(hi-lo)
	}
}

// NewCombinatorialRegistry 为目录中每个 (角色, 专长) 组合生成一个 Agent。
// Agent ID 为 "role/specialization"。空目录返回空池。
func NewCombinatorialRegistry(catalog Catalog, cfg PoolConfig) *Registry {
	next := cfg.randomConfidence()
	r := NewRegistry()
	for _, entry := range catalog {
		for _, spec := range entry.Specializations {
			id := agentID(entry.Role, spec)
			if _, exists := r.agents[id]; exists {
				continue
			}
			r.agents[id] = NewAgent(id, entry.Role, []string{spec}, next(), cfg.LearningRate)
		}
	}
	return r
}

func agentID(role Role, spec string) string {
	return string(role) + "/" + strings.ReplaceAll(strings.ToLower(spec), " ", "-")
}

// rosterMember 固定名册中的一个成员
type rosterMember struct {
	id              string
	role            Role
	specializations []string
	capability      ActionKind
}

// emailRoster 邮件管理名册
var emailRoster = []rosterMember{
	{"categorizer", RoleAnalyzer, []string{"classification", "triage"}, ActionCategorize},
	{"prioritizer", RoleStrategist, []string{"urgency", "importance"}, ActionPrioritize},
	{"responder", RoleWriter, []string{"reply", "tone"}, ActionDraftReply},
	{"scheduler", RoleScheduler, []string{"meeting", "calendar"}, ActionSchedule},
	{"summarizer", RoleEditor, []string{"summary", "brevity"}, ActionSummarize},
	{"archiver", RoleAnalyzer, []string{"retention", "cleanup"}, ActionArchive},
	{"guardian", RoleAnalyzer, []string{"security", "phishing"}, ActionFlag},
	{"follow-up", RoleNegotiator, []string{"reminder", "tracking"}, ActionFollowUp},
}

// NewFixedRoster 创建 8 个邮件管理 Agent 的固定名册，每个 Agent 携带一项能力置信度
func NewFixedRoster(cfg PoolConfig) *Registry {
	next := cfg.randomConfidence()
	r := NewRegistry()
	for _, m := range emailRoster {
		a := NewAgent(m.id, m.role, m.specializations, next(), cfg.LearningRate).
			WithCapability(m.capability, next())
		r.agents[a.ID] = a
	}
	return r
}
