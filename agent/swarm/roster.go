package swarm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/agentswarm/agent/persistence"
	"github.com/BaSui01/agentswarm/internal/metrics"
	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// 📬 常驻邮件群体
// =============================================================================

const modeRoster = "roster"

// Swarm 常驻群体：固定名册的 Agent 在整个进程生命周期内存在，
// 通过结果反馈不断调整置信度。
//
// 与 Engine 不同，交叉验证后的置信度不写回名册 Agent：名册置信度只由
// RecordOutcome 修改，从而始终保持在 [0.5, 1] 区间。验证后的置信度只用于
// 共识排序，体现在返回的 Decision.Confidence 中。
type Swarm struct {
	cfg             Config
	registry        *Registry
	pipeline        *pipeline
	executor        *ActionExecutor
	confidenceStore persistence.ConfidenceStore
	outcomeStore    persistence.OutcomeStore
	metrics         *metrics.Collector
	logger          *zap.Logger
	opts            *options
}

// NewSwarm 创建常驻群体。未通过 WithRegistry 指定时使用 8 个邮件管理 Agent 的固定名册。
func NewSwarm(generator llm.Generator, cfg Config, opts ...Option) *Swarm {
	o := newOptions(opts)
	cfg = cfg.withDefaults()

	registry := o.registry
	if registry == nil {
		registry = NewFixedRoster(cfg.poolConfig(o.rng))
	}

	p := newPipeline(generator, cfg, o)

	s := &Swarm{
		cfg:             cfg,
		registry:        registry,
		pipeline:        p,
		executor:        NewActionExecutor(generator, cfg.Synthesis, o.logger),
		confidenceStore: o.confidenceStore,
		outcomeStore:    o.outcomeStore,
		metrics:         o.metrics,
		logger:          o.logger.With(zap.String("component", "swarm_roster")),
		opts:            o,
	}
	for _, a := range registry.ListAgents() {
		s.metrics.SetAgentConfidence(a.ID, a.Confidence())
	}
	s.logger.Info("roster swarm initialized",
		zap.Int("agents", registry.Len()),
		zap.Float64("execution_threshold", cfg.ExecutionThreshold),
	)
	return s
}

// Registry 返回名册
func (s *Swarm) Registry() *Registry {
	return s.registry
}

// ProcessDecision 名册中全部 Agent 对邮件给出决策，交叉验证后形成共识。
// 返回结果中的 Action 为置信度最高的验证后决策建议的动作。
func (s *Swarm) ProcessDecision(ctx context.Context, email Email) (*DecisionOutcome, error) {
	agents := s.registry.ListAgents()
	task := Task{
		ID:                 uuid.NewString(),
		Description:        emailTaskDescription(email),
		Context:            emailContext(email),
		RequiredAgentCount: len(agents),
		ConsensusThreshold: s.cfg.ConsensusThreshold,
	}

	result, err := s.pipeline.run(ctx, modeRoster, task, agents)
	if err != nil {
		return nil, err
	}

	outcome := &DecisionOutcome{
		TaskID:     result.TaskID,
		Decisions:  result.AgentDecisions,
		Consensus:  result.Consensus,
		Confidence: result.Confidence,
		Degraded:   result.Degraded,
	}
	if top := rankByConfidence(result.AgentDecisions); len(top) > 0 {
		outcome.Action = ActionKind(top[0].Action)
		outcome.ActingAgentID = top[0].AgentID
	}
	return outcome, nil
}

// ExecuteAction 由指定 Agent 执行决策中的动作。门槛比较的是提出决策时该动作的
// 能力置信度（CapabilityConfidence），而非交叉验证后的置信度；决策未携带能力置信度时
// 使用 Confidence。低于执行门槛时动作被拒绝，不执行也不惩罚。
// Agent 不存在时返回 AGENT_NOT_FOUND。
func (s *Swarm) ExecuteAction(ctx context.Context, agentID string, decision Decision, email Email) (ActionResult, error) {
	a, ok := s.registry.Get(agentID)
	if !ok {
		return ActionResult{}, agentNotFound(agentID)
	}

	action := ParseAction(decision.Action, decision.Params)
	gate := decision.gateConfidence()
	if gate < s.cfg.ExecutionThreshold {
		s.transition(a, StateRejected, StateIdle)
		s.logger.Info("action rejected",
			zap.String("agent_id", agentID),
			zap.String("action", decision.Action),
			zap.Float64("confidence", gate),
			zap.Float64("threshold", s.cfg.ExecutionThreshold),
		)
		return ActionResult{
			Success: false,
			Action:  action.Kind(),
			Reason:  lowConfidenceReason,
			Code:    string(types.ErrLowConfidence),
			State:   StateRejected,
		}, nil
	}

	s.transition(a, StateExecuting)
	result := s.executor.Execute(ctx, action, email)
	s.transition(a, result.State, StateIdle)

	s.logger.Info("action executed",
		zap.String("agent_id", agentID),
		zap.String("action", string(result.Action)),
		zap.Bool("success", result.Success),
		zap.String("email_id", email.ID),
	)
	return result, nil
}

// RecordOutcome 将真实结果反馈给 Agent，并按配置保存快照与审计记录。
// 持久化失败只记录日志，不回滚内存中的学习结果。
func (s *Swarm) RecordOutcome(ctx context.Context, agentID string, decision Decision, outcome Outcome) (LearningUpdate, error) {
	a, ok := s.registry.Get(agentID)
	if !ok {
		return LearningUpdate{}, agentNotFound(agentID)
	}
	if outcome != OutcomeSuccess && outcome != OutcomeFailure {
		return LearningUpdate{}, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown outcome %q", outcome))
	}

	update := RecordOutcome(a, decision, outcome)
	s.metrics.RecordOutcome(string(outcome))
	s.metrics.SetAgentConfidence(a.ID, update.ConfidenceAfter)

	s.logger.Info("outcome recorded",
		zap.String("agent_id", agentID),
		zap.String("action", decision.Action),
		zap.String("outcome", string(outcome)),
		zap.Float64("confidence_before", update.ConfidenceBefore),
		zap.Float64("confidence_after", update.ConfidenceAfter),
	)

	if s.confidenceStore != nil {
		snap := persistence.ConfidenceSnapshot{
			AgentID:      a.ID,
			Confidence:   a.Confidence(),
			Capabilities: a.CapabilitySnapshot(),
			UpdatedAt:    s.opts.now(),
		}
		if err := s.confidenceStore.Save(ctx, snap); err != nil {
			s.logger.Warn("failed to save confidence snapshot", zap.String("agent_id", a.ID), zap.Error(err))
		}
	}
	if s.outcomeStore != nil {
		rec := &persistence.OutcomeRecord{
			TaskID:           decision.TaskID,
			AgentID:          a.ID,
			Action:           decision.Action,
			Outcome:          string(outcome),
			ConfidenceBefore: update.ConfidenceBefore,
			ConfidenceAfter:  update.ConfidenceAfter,
			CapabilityBefore: update.CapabilityBefore,
			CapabilityAfter:  update.CapabilityAfter,
			CreatedAt:        s.opts.now(),
		}
		if err := s.outcomeStore.Append(ctx, rec); err != nil {
			s.logger.Warn("failed to append outcome record", zap.String("agent_id", a.ID), zap.Error(err))
		}
	}
	return update, nil
}

// Restore 从快照存储恢复名册置信度，返回恢复的 Agent 数量。
// 未配置存储时返回 0；未知 Agent 的快照被忽略。
func (s *Swarm) Restore(ctx context.Context) (int, error) {
	if s.confidenceStore == nil {
		return 0, nil
	}
	snaps, err := s.confidenceStore.LoadAll(ctx)
	if err != nil {
		return 0, types.NewError(types.ErrSnapshotUnavailable, "failed to load confidence snapshots").WithCause(err)
	}

	restored := 0
	for _, snap := range snaps {
		a, ok := s.registry.Get(snap.AgentID)
		if !ok {
			s.logger.Debug("ignoring snapshot for unknown agent", zap.String("agent_id", snap.AgentID))
			continue
		}
		a.restore(snap.Confidence, snap.Capabilities, confidenceFloor)
		s.metrics.SetAgentConfidence(a.ID, a.Confidence())
		restored++
	}
	s.logger.Info("confidence restored", zap.Int("agents", restored), zap.Int("snapshots", len(snaps)))
	return restored, nil
}

// History 返回 Agent 最近的结果记录，未配置审计日志时返回空
func (s *Swarm) History(ctx context.Context, agentID string, limit int) ([]persistence.OutcomeRecord, error) {
	if s.outcomeStore == nil {
		return nil, nil
	}
	if _, ok := s.registry.Get(agentID); !ok && agentID != "" {
		return nil, agentNotFound(agentID)
	}
	records, err := s.outcomeStore.List(ctx, agentID, limit)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil
	}
	return records, err
}

// Close 等待进行中的决策结束
func (s *Swarm) Close() {
	s.pipeline.close()
}

func (s *Swarm) transition(a *Agent, states ...State) {
	for _, st := range states {
		if err := a.transition(st); err != nil {
			s.logger.Debug("state transition skipped", zap.Error(err))
		}
	}
}

func emailTaskDescription(email Email) string {
	var b strings.Builder
	b.WriteString("Decide how to handle this email.\n")
	fmt.Fprintf(&b, "From: %s\n", email.From)
	if email.To != "" {
		fmt.Fprintf(&b, "To: %s\n", email.To)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n%s", email.Subject, email.Body)
	return b.String()
}

// emailContext 为选择器提供邮件类型与紧急标记
func emailContext(email Email) map[string]any {
	ctx := map[string]any{
		"email_id":   email.ID,
		"email_type": categorize(email),
	}
	if prioritize(email) == "high" {
		ctx["urgent"] = true
	}
	return ctx
}
