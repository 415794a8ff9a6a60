package swarm

import (
	"context"
	"strings"

	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// 🐝 临时群体引擎
// =============================================================================

const modeCombinatorial = "combinatorial"

// Engine 临时任务入口：构造时按能力目录生成组合式 Agent 池，
// 每次 ProcessTask 从池中选择 Agent 并跑完整个共识流程
type Engine struct {
	cfg      Config
	registry *Registry
	pipeline *pipeline
	logger   *zap.Logger
}

// NewEngine 创建引擎。未通过 WithCatalog/WithRegistry 指定池时使用默认目录。
func NewEngine(generator llm.Generator, cfg Config, opts ...Option) *Engine {
	o := newOptions(opts)
	cfg = cfg.withDefaults()

	registry := o.registry
	if registry == nil {
		catalog := DefaultCatalog()
		if o.catalogSet {
			catalog = o.catalog
		}
		registry = NewCombinatorialRegistry(catalog, cfg.poolConfig(o.rng))
	}

	p := newPipeline(generator, cfg, o)
	p.writeBack = true
	p.withAlternatives = true

	e := &Engine{
		cfg:      cfg,
		registry: registry,
		pipeline: p,
		logger:   o.logger.With(zap.String("component", "swarm_engine")),
	}
	e.logger.Info("swarm engine initialized",
		zap.Int("pool_size", registry.Len()),
		zap.Int("default_agent_count", cfg.DefaultAgentCount),
		zap.Int("max_parallel", cfg.MaxParallel),
	)
	return e
}

// Registry 返回引擎的 Agent 池
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ProcessTask 处理一次临时任务
func (e *Engine) ProcessTask(ctx context.Context, description string, taskCtx map[string]any, opts TaskOptions) (*ConsensusResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "task description is required")
	}

	task := e.newTask(description, taskCtx, opts)
	e.logger.Debug("processing task",
		zap.String("task_id", task.ID),
		zap.Int("required_agents", task.RequiredAgentCount),
		zap.Float64("threshold", task.ConsensusThreshold),
	)
	return e.pipeline.run(ctx, modeCombinatorial, task, e.registry.ListAgents())
}

func (e *Engine) newTask(description string, taskCtx map[string]any, opts TaskOptions) Task {
	count := opts.AgentCount
	if count <= 0 {
		count = e.cfg.DefaultAgentCount
	}
	threshold := opts.ConsensusThreshold
	if threshold <= 0 {
		threshold = e.cfg.ConsensusThreshold
	}
	return Task{
		ID:                 uuid.NewString(),
		Description:        description,
		Context:            copyContext(taskCtx),
		RequiredAgentCount: count,
		ConsensusThreshold: threshold,
	}
}

// Close 等待进行中的决策结束
func (e *Engine) Close() {
	e.pipeline.close()
}

func copyContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// withDefaults 用默认值补全零值字段
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultAgentCount <= 0 {
		c.DefaultAgentCount = d.DefaultAgentCount
	}
	if c.ConsensusThreshold <= 0 {
		c.ConsensusThreshold = d.ConsensusThreshold
	}
	if c.AgentTimeout <= 0 {
		c.AgentTimeout = d.AgentTimeout
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = d.MaxParallel
	}
	if c.MinInitialConfidence <= 0 && c.MaxInitialConfidence <= 0 {
		c.MinInitialConfidence, c.MaxInitialConfidence = d.MinInitialConfidence, d.MaxInitialConfidence
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		c.LearningRate = d.LearningRate
	}
	if c.ExecutionThreshold <= 0 {
		c.ExecutionThreshold = d.ExecutionThreshold
	}
	if c.Decision.MaxTokens <= 0 {
		c.Decision = d.Decision
	}
	if c.Synthesis.MaxTokens <= 0 {
		c.Synthesis = d.Synthesis
	}
	return c
}
