package swarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/agentswarm/internal/metrics"
	"github.com/BaSui01/agentswarm/internal/pool"
	"github.com/BaSui01/agentswarm/internal/telemetry"
	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// 阶段名，用于 span 与指标
const (
	phaseSelect       = "select"
	phaseDecide       = "decide"
	phaseValidate     = "validate"
	phaseConsensus    = "consensus"
	phaseAlternatives = "alternatives"
)

// pipeline 选择 → 决策 → 交叉验证 → 共识 → 备选方案，各阶段严格顺序执行
type pipeline struct {
	cfg          Config
	workers      *pool.Pool
	decider      *Decider
	builder      *ConsensusBuilder
	alternatives *AlternativeGenerator
	metrics      *metrics.Collector
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time

	// writeBack 是否将验证后的置信度写回 Agent
	writeBack bool
	// withAlternatives 是否生成备选方案
	withAlternatives bool
}

func newPipeline(generator llm.Generator, cfg Config, o *options) *pipeline {
	logger := o.logger
	workers := pool.New(pool.Config{
		MaxWorkers:  cfg.MaxParallel,
		TaskTimeout: cfg.AgentTimeout,
		PanicHandler: func(r any) {
			logger.Error("agent task panicked", zap.Any("panic", r))
		},
	})
	return &pipeline{
		cfg:          cfg,
		workers:      workers,
		decider:      NewDecider(generator, workers, cfg.Decision, o.metrics, logger),
		builder:      NewConsensusBuilder(generator, cfg.Synthesis, logger),
		alternatives: NewAlternativeGenerator(generator, cfg.Synthesis, logger),
		metrics:      o.metrics,
		logger:       logger,
		tracer:       telemetry.Tracer(),
		now:          o.now,
	}
}

func (p *pipeline) run(ctx context.Context, mode string, task Task, candidates []*Agent) (result *ConsensusResult, err error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "swarm.process_task",
		trace.WithAttributes(
			attribute.String("swarm.mode", mode),
			attribute.String("swarm.task_id", task.ID),
			attribute.Int("swarm.required_agents", task.RequiredAgentCount),
		),
	)
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Float64("swarm.confidence", result.Confidence),
				attribute.Bool("swarm.degraded", result.Degraded),
			)
		}
		span.End()
		p.metrics.RecordTask(mode, status, p.now().Sub(start))
	}()

	// 1. 选择
	var selected []*Agent
	p.phase(ctx, phaseSelect, func(context.Context) {
		selected = SelectAgents(task, candidates)
	})
	if len(selected) == 0 {
		p.logger.Warn("no agents selected", zap.String("task_id", task.ID), zap.Int("pool_size", len(candidates)))
		return nil, types.NewError(types.ErrEmptyPool, "no agents available for task")
	}

	// 2. 并行决策
	var (
		decisions []Decision
		failures  []AgentFailure
	)
	p.phase(ctx, phaseDecide, func(ctx context.Context) {
		decisions, failures = p.decider.ProduceDecisions(ctx, task, selected)
	})
	if len(decisions) == 0 {
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = f
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
		}
		return nil, types.NewError(types.ErrNoParticipants,
			fmt.Sprintf("all %d selected agents failed", len(selected))).WithCause(errors.Join(errs...))
	}

	// 3. 交叉验证
	var validated []Decision
	p.phase(ctx, phaseValidate, func(ctx context.Context) {
		validated = CrossValidate(ctx, decisions, p.cfg.MaxParallel)
	})
	p.settle(validated, candidates)

	// 4. 共识
	var outcome ConsensusOutcome
	p.phase(ctx, phaseConsensus, func(ctx context.Context) {
		outcome = p.builder.BuildConsensus(ctx, task, validated)
	})

	// 5. 备选方案
	alternatives := []string{}
	if p.withAlternatives {
		p.phase(ctx, phaseAlternatives, func(ctx context.Context) {
			alternatives = p.alternatives.GenerateAlternatives(ctx, validated, outcome.Consensus)
		})
	}

	failed := make([]string, len(failures))
	for i, f := range failures {
		failed[i] = f.AgentID
	}

	result = &ConsensusResult{
		TaskID:         task.ID,
		Consensus:      outcome.Consensus,
		Confidence:     outcome.Confidence,
		AgentDecisions: validated,
		Alternatives:   alternatives,
		Reasoning:      outcome.Reasoning,
		VotingResults:  outcome.VotingResults,
		Degraded:       outcome.Degraded,
		ThresholdMet:   outcome.Confidence >= task.ConsensusThreshold,
		SelectedAgents: len(selected),
		FailedAgents:   failed,
		Duration:       p.now().Sub(start),
	}
	p.metrics.RecordConsensusConfidence(result.Confidence)

	p.logger.Info("consensus reached",
		zap.String("task_id", task.ID),
		zap.String("mode", mode),
		zap.Int("selected", len(selected)),
		zap.Int("participants", len(validated)),
		zap.Int("failed", len(failures)),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("threshold_met", result.ThresholdMet),
		zap.Bool("degraded", result.Degraded),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// phase 在独立 span 中执行一个阶段并记录耗时
func (p *pipeline) phase(ctx context.Context, name string, fn func(ctx context.Context)) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "swarm."+name)
	defer span.End()
	fn(ctx)
	p.metrics.RecordPhase(name, p.now().Sub(start))
}

// settle 写回验证后的置信度（按配置）并将参与者状态推进到 Validated → Idle
func (p *pipeline) settle(validated []Decision, candidates []*Agent) {
	byID := make(map[string]*Agent, len(candidates))
	for _, a := range candidates {
		byID[a.ID] = a
	}
	for _, d := range validated {
		a, ok := byID[d.AgentID]
		if !ok {
			continue
		}
		if p.writeBack {
			a.setConfidence(d.Confidence)
			p.metrics.SetAgentConfidence(a.ID, d.Confidence)
		}
		for _, s := range []State{StateValidated, StateIdle} {
			if err := a.transition(s); err != nil {
				p.logger.Debug("state transition skipped", zap.Error(err))
			}
		}
	}
}

func (p *pipeline) close() {
	p.workers.Close()
}
