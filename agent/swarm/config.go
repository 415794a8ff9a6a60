package swarm

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/BaSui01/agentswarm/agent/persistence"
	"github.com/BaSui01/agentswarm/config"
	"github.com/BaSui01/agentswarm/internal/metrics"
	"go.uber.org/zap"
)

// Config 群体引擎配置
type Config struct {
	DefaultAgentCount    int           `json:"default_agent_count"`
	ConsensusThreshold   float64       `json:"consensus_threshold"`
	AgentTimeout         time.Duration `json:"agent_timeout"`
	MaxParallel          int           `json:"max_parallel"`
	MinInitialConfidence float64       `json:"min_initial_confidence"`
	MaxInitialConfidence float64       `json:"max_initial_confidence"`
	LearningRate         float64       `json:"learning_rate"`
	ExecutionThreshold   float64       `json:"execution_threshold"`

	Decision  DeciderConfig   `json:"decision"`
	Synthesis SynthesisConfig `json:"synthesis"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		DefaultAgentCount:    7,
		ConsensusThreshold:   0.7,
		AgentTimeout:         20 * time.Second,
		MaxParallel:          8,
		MinInitialConfidence: 0.7,
		MaxInitialConfidence: 1.0,
		LearningRate:         0.1,
		ExecutionThreshold:   DefaultExecutionThreshold,
		Decision:             DeciderConfig{Temperature: 0.7, MaxTokens: 512},
		Synthesis:            SynthesisConfig{Temperature: 0.3, MaxTokens: 768},
	}
}

// ConfigFrom 由应用配置转换，同时返回能力目录
func ConfigFrom(c config.SwarmConfig) (Config, Catalog, error) {
	catalog, err := CatalogFromConfig(c.Catalog)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid swarm catalog: %w", err)
	}
	return Config{
		DefaultAgentCount:    c.DefaultAgentCount,
		ConsensusThreshold:   c.ConsensusThreshold,
		AgentTimeout:         c.AgentTimeout,
		MaxParallel:          c.MaxParallel,
		MinInitialConfidence: c.MinInitialConfidence,
		MaxInitialConfidence: c.MaxInitialConfidence,
		LearningRate:         c.LearningRate,
		ExecutionThreshold:   c.ExecutionThreshold,
		Decision:             DeciderConfig{Temperature: c.DecisionTemperature, MaxTokens: c.DecisionMaxTokens},
		Synthesis:            SynthesisConfig{Temperature: c.SynthesisTemperature, MaxTokens: c.SynthesisMaxTokens},
	}, catalog, nil
}

func (c Config) poolConfig(rng *rand.Rand) PoolConfig {
	return PoolConfig{
		MinConfidence: c.MinInitialConfidence,
		MaxConfidence: c.MaxInitialConfidence,
		LearningRate:  c.LearningRate,
		Rand:          rng,
	}
}

// =============================================================================
// 🔧 选项
// =============================================================================

// Option 引擎与常驻群体的可选依赖
type Option func(*options)

type options struct {
	logger          *zap.Logger
	metrics         *metrics.Collector
	rng             *rand.Rand
	catalog         Catalog
	catalogSet      bool
	registry        *Registry
	confidenceStore persistence.ConfidenceStore
	outcomeStore    persistence.OutcomeStore
	now             func() time.Time
}

func newOptions(opts []Option) *options {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics 设置指标收集器
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.metrics = collector }
}

// WithRand 注入初始置信度使用的随机源
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithSeed 使用固定种子
func WithSeed(seed uint64) Option {
	return func(o *options) { o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithCatalog 指定组合式池的能力目录，空目录产生空池
func WithCatalog(catalog Catalog) Option {
	return func(o *options) {
		o.catalog = catalog
		o.catalogSet = true
	}
}

// WithRegistry 直接指定 Agent 池，忽略目录
func WithRegistry(registry *Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithConfidenceStore 设置置信度快照存储（仅常驻群体）
func WithConfidenceStore(store persistence.ConfidenceStore) Option {
	return func(o *options) { o.confidenceStore = store }
}

// WithOutcomeStore 设置结果审计日志（仅常驻群体）
func WithOutcomeStore(store persistence.OutcomeStore) Option {
	return func(o *options) { o.outcomeStore = store }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
