// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Collector struct {
	registry prometheus.Gatherer

	// 任务指标
	tasksTotal          *prometheus.CounterVec
	taskDuration        *prometheus.HistogramVec
	phaseDuration       *prometheus.HistogramVec
	consensusConfidence prometheus.Histogram

	// Agent 指标
	agentCallsTotal   *prometheus.CounterVec
	agentCallDuration *prometheus.HistogramVec
	agentConfidence   *prometheus.GaugeVec
	outcomesTotal     *prometheus.CounterVec

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 数据库指标
	dbQueryDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时使用独立的 Registry，
// 避免多个实例（例如测试）在全局默认 Registry 上重复注册。
func NewCollector(namespace string, reg *prometheus.Registry, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// 任务指标
	c.tasksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swarm_tasks_total",
			Help:      "Total number of swarm tasks processed",
		},
		[]string{"mode", "status"},
	)

	c.taskDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "swarm_task_duration_seconds",
			Help:      "End-to-end swarm task duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"mode"},
	)

	c.phaseDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "swarm_phase_duration_seconds",
			Help:      "Duration of each consensus phase in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"phase"},
	)

	c.consensusConfidence = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "swarm_consensus_confidence",
			Help:      "Distribution of consensus confidence values",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// Agent 指标
	c.agentCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swarm_agent_calls_total",
			Help:      "Total number of agent decision calls",
		},
		[]string{"role", "status"},
	)

	c.agentCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "swarm_agent_call_duration_seconds",
			Help:      "Agent decision call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"role"},
	)

	c.agentConfidence = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "swarm_agent_confidence",
			Help:      "Current confidence of each agent",
		},
		[]string{"agent_id"},
	)

	c.outcomesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swarm_outcomes_total",
			Help:      "Total number of recorded action outcomes",
		},
		[]string{"outcome"},
	)

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 数据库指标
	c.dbQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"database", "operation"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Gatherer 返回底层 Registry，用于暴露 /metrics
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordTask 记录一次群体任务
func (c *Collector) RecordTask(mode, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.tasksTotal.WithLabelValues(mode, status).Inc()
	c.taskDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordPhase 记录共识流程中单个阶段的耗时
func (c *Collector) RecordPhase(phase string, duration time.Duration) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordConsensusConfidence 记录共识置信度
func (c *Collector) RecordConsensusConfidence(confidence float64) {
	if c == nil {
		return
	}
	c.consensusConfidence.Observe(confidence)
}

// RecordAgentCall 记录一次 Agent 决策调用
func (c *Collector) RecordAgentCall(role, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.agentCallsTotal.WithLabelValues(role, status).Inc()
	c.agentCallDuration.WithLabelValues(role).Observe(duration.Seconds())
}

// SetAgentConfidence 更新 Agent 当前置信度
func (c *Collector) SetAgentConfidence(agentID string, confidence float64) {
	if c == nil {
		return
	}
	c.agentConfidence.WithLabelValues(agentID).Set(confidence)
}

// RecordOutcome 记录动作执行结果（success / failure）
func (c *Collector) RecordOutcome(outcome string) {
	if c == nil {
		return
	}
	c.outcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordDBQuery 记录数据库查询
func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	if c == nil {
		return
	}
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}
