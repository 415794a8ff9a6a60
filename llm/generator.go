package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentswarm/internal/metrics"
	"github.com/BaSui01/agentswarm/llm/circuitbreaker"
	"github.com/BaSui01/agentswarm/llm/retry"
	"github.com/BaSui01/agentswarm/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generator 文本生成协作方。对调用方而言是同步调用：给定提示词、温度与最大 Token 数，返回一段文本。
// 实现必须可并发调用。
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// GeneratorFunc 函数适配器
type GeneratorFunc func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)

// Generate 实现 Generator
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return f(ctx, prompt, temperature, maxTokens)
}

// GeneratorConfig ProviderGenerator 配置
type GeneratorConfig struct {
	Model        string                `yaml:"model" json:"model"`
	SystemPrompt string                `yaml:"system_prompt" json:"system_prompt"`
	RateLimitRPS float64               `yaml:"rate_limit_rps" json:"rate_limit_rps"` // <=0 表示不限流
	RateBurst    int                   `yaml:"rate_burst" json:"rate_burst"`
	Retry        retry.Policy          `yaml:"retry" json:"retry"`
	Breaker      circuitbreaker.Config `yaml:"breaker" json:"breaker"`
}

// DefaultGeneratorConfig 返回默认配置
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Model:        "gpt-4o-mini",
		SystemPrompt: "You are one member of a panel of specialised assistants. Answer precisely and follow the requested output format.",
		RateLimitRPS: 10,
		RateBurst:    20,
		Retry:        retry.DefaultPolicy(),
		Breaker:      circuitbreaker.DefaultConfig(),
	}
}

// ProviderGenerator 把聊天式 Provider 适配为 Generator，
// 调用链：限流 → 熔断 → 重试 → Provider.Completion
type ProviderGenerator struct {
	provider Provider
	config   GeneratorConfig
	limiter  *rate.Limiter
	breaker  *circuitbreaker.Breaker
	retryer  *retry.Retryer
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewProviderGenerator 创建基于 Provider 的生成器。collector 可为 nil。
func NewProviderGenerator(provider Provider, config GeneratorConfig, collector *metrics.Collector, logger *zap.Logger) *ProviderGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "generator"), zap.String("provider", provider.Name()))

	var limiter *rate.Limiter
	if config.RateLimitRPS > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimitRPS), burst)
	}

	breakerCfg := config.Breaker
	userHook := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Info("generator circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		if userHook != nil {
			userHook(from, to)
		}
	}

	return &ProviderGenerator{
		provider: provider,
		config:   config,
		limiter:  limiter,
		breaker:  circuitbreaker.New(breakerCfg, logger),
		retryer:  retry.New(config.Retry, logger),
		metrics:  collector,
		logger:   logger,
	}
}

// Generate 实现 Generator
func (g *ProviderGenerator) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", types.NewError(types.ErrRateLimited, "rate limiter wait aborted").WithCause(err)
		}
	}

	req := &ChatRequest{
		Model:       g.config.Model,
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		Messages:    make([]Message, 0, 2),
	}
	if g.config.SystemPrompt != "" {
		req.Messages = append(req.Messages, Message{Role: RoleSystem, Content: g.config.SystemPrompt})
	}
	req.Messages = append(req.Messages, Message{Role: RoleUser, Content: prompt})

	start := time.Now()
	resp, err := circuitbreaker.Call(ctx, g.breaker, func(ctx context.Context) (*ChatResponse, error) {
		return retry.Do(ctx, g.retryer, func(ctx context.Context) (*ChatResponse, error) {
			return g.provider.Completion(ctx, req)
		})
	})
	duration := time.Since(start)

	if err != nil {
		g.metrics.RecordLLMRequest(g.provider.Name(), g.config.Model, "error", duration, 0, 0)
		return "", fmt.Errorf("generate via %s: %w", g.provider.Name(), err)
	}

	g.metrics.RecordLLMRequest(g.provider.Name(), resp.Model, "success", duration,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	content := strings.TrimSpace(resp.FirstContent())
	if content == "" {
		return "", types.NewError(types.ErrUpstreamError, "empty completion").WithProvider(g.provider.Name())
	}
	return content, nil
}

// BreakerState 返回当前熔断状态
func (g *ProviderGenerator) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}
