package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentswarm/internal/metrics"
	"github.com/BaSui01/agentswarm/internal/pool"
	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🗳️ 并行决策阶段
// =============================================================================

// DeciderConfig 决策阶段参数
type DeciderConfig struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Decider 在有界工作池上并发收集各 Agent 的决策
type Decider struct {
	generator llm.Generator
	workers   *pool.Pool
	config    DeciderConfig
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewDecider 创建决策器
func NewDecider(generator llm.Generator, workers *pool.Pool, config DeciderConfig, collector *metrics.Collector, logger *zap.Logger) *Decider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers == nil {
		workers = pool.New(pool.DefaultConfig())
	}
	return &Decider{
		generator: generator,
		workers:   workers,
		config:    config,
		metrics:   collector,
		logger:    logger.With(zap.String("component", "decider")),
	}
}

// ProduceDecisions 每个 Agent 产出一个决策。失败或超时的 Agent 被丢弃并记录，
// 不影响其他 Agent。输出顺序与输入 Agent 顺序一致。
func (d *Decider) ProduceDecisions(ctx context.Context, task Task, agents []*Agent) ([]Decision, []AgentFailure) {
	results := make([]*Decision, len(agents))

	errs := d.workers.Run(ctx, len(agents), func(ctx context.Context, i int) error {
		dec, err := d.decide(ctx, task, agents[i])
		if err != nil {
			return err
		}
		results[i] = &dec
		return nil
	})

	decisions := make([]Decision, 0, len(agents))
	var failures []AgentFailure
	for i, a := range agents {
		if errs[i] != nil || results[i] == nil {
			err := errs[i]
			if err == nil {
				err = errors.New("no decision produced")
			}
			failures = append(failures, AgentFailure{
				AgentID: a.ID,
				Role:    a.Role,
				Err: types.NewError(types.ErrAgentCallFailed, "agent decision failed").
					WithAgent(a.ID).
					WithCause(err),
			})
			d.logger.Warn("agent decision failed",
				zap.String("task_id", task.ID),
				zap.String("agent_id", a.ID),
				zap.String("role", string(a.Role)),
				zap.Error(err),
			)
			if terr := a.transition(StateIdle); terr != nil {
				d.logger.Debug("state transition skipped", zap.Error(terr))
			}
			continue
		}
		decisions = append(decisions, *results[i])
	}
	return decisions, failures
}

func (d *Decider) decide(ctx context.Context, task Task, a *Agent) (Decision, error) {
	if d.generator == nil {
		return Decision{}, ErrGeneratorNotSet
	}
	if err := a.transition(StateDeciding); err != nil {
		d.logger.Debug("state transition skipped", zap.Error(err))
	}

	start := time.Now()
	out, err := d.generator.Generate(ctx, buildDecisionPrompt(task, a), d.config.Temperature, d.config.MaxTokens)
	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.RecordAgentCall(string(a.Role), status, time.Since(start))
	if err != nil {
		return Decision{}, err
	}

	parsed := parseDecisionOutput(out)
	action := a.resolveAction(parsed.Action)
	capConf, _ := a.CapabilityConfidence(ActionKind(action))

	d.logger.Debug("agent decided",
		zap.String("task_id", task.ID),
		zap.String("agent_id", a.ID),
		zap.String("action", action),
		zap.Duration("latency", time.Since(start)),
	)

	return Decision{
		TaskID:               task.ID,
		AgentID:              a.ID,
		Role:                 a.Role,
		Specializations:      append([]string(nil), a.Specializations...),
		Action:               action,
		Params:               parsed.Params,
		Response:             parsed.Response,
		Reasoning:            parsed.Reasoning,
		Confidence:           a.decisionConfidence(action),
		CapabilityConfidence: capConf,
		Alternatives:         parsed.Alternatives,
		Impact:               ParseImpact(parsed.Impact),
	}, nil
}

// decisionOutput 模型输出的 JSON 结构
type decisionOutput struct {
	Response     string         `json:"response"`
	Reasoning    string         `json:"reasoning"`
	Action       string         `json:"action"`
	Params       map[string]any `json:"params"`
	Alternatives []string       `json:"alternatives"`
	Impact       string         `json:"impact"`
}

// parseDecisionOutput 解析决策输出。JSON 无法解析时原文同时作为回复与理由，影响等级为 medium。
func parseDecisionOutput(raw string) decisionOutput {
	text := strings.TrimSpace(raw)
	var out decisionOutput
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &out); err != nil ||
		(strings.TrimSpace(out.Response) == "" && strings.TrimSpace(out.Reasoning) == "") {
		return decisionOutput{Response: text, Reasoning: text, Impact: string(ImpactMedium)}
	}
	if out.Response == "" {
		out.Response = out.Reasoning
	}
	if out.Reasoning == "" {
		out.Reasoning = out.Response
	}
	return out
}

// stripCodeFence 去掉 ```json ... ``` 包裹
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func buildDecisionPrompt(task Task, a *Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s agent, specialising in %s.\n", a.Role, strings.Join(a.Specializations, ", "))
	if caps := a.Capabilities(); len(caps) > 0 {
		names := make([]string, len(caps))
		for i, c := range caps {
			names[i] = string(c)
		}
		fmt.Fprintf(&b, "Your available actions: %s.\n", strings.Join(names, ", "))
		b.WriteString("Optional params: draft_reply tone, schedule when, summarize max_words, archive folder, flag reason, follow_up after (a duration such as 48h).\n")
	}
	b.WriteString("\nTask:\n")
	b.WriteString(task.Description)
	b.WriteString("\n")
	if len(task.Context) > 0 {
		if data, err := json.Marshal(task.Context); err == nil {
			b.WriteString("\nContext:\n")
			b.Write(data)
			b.WriteString("\n")
		}
	}
	b.WriteString(`
Respond with a single JSON object and nothing else:
{"response": "<your proposed response>", "reasoning": "<why>", "action": "<action identifier>", "params": {"<name>": "<value>"}, "alternatives": ["<other options>"], "impact": "low|medium|high"}`)
	return b.String()
}
