package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentswarm/agent/persistence"
	"github.com/BaSui01/agentswarm/agent/swarm"
	"github.com/BaSui01/agentswarm/config"
	"github.com/BaSui01/agentswarm/internal/cache"
	"github.com/BaSui01/agentswarm/internal/database"
	"github.com/BaSui01/agentswarm/internal/metrics"
	"github.com/BaSui01/agentswarm/internal/server"
	"github.com/BaSui01/agentswarm/internal/telemetry"
	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/llm/providers/openaicompat"
)

// =============================================================================
// 🧩 运行时装配
// =============================================================================

// app 一次命令执行所需的全部组件
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	generator llm.Generator

	swarmConfig swarm.Config
	catalog     swarm.Catalog

	otel            *telemetry.Providers
	metricsServer   *server.Manager
	cache           *cache.Manager
	db              *database.PoolManager
	confidenceStore persistence.ConfidenceStore
	outcomeStore    persistence.OutcomeStore
}

// newApp 按配置装配组件。generator 为 nil 时根据 LLM 配置创建。
// metricsAddr 非空时覆盖配置并启用指标端口。
func newApp(ctx context.Context, cfg *config.Config, generator llm.Generator, metricsAddr string, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	swarmCfg, catalog, err := swarm.ConfigFrom(cfg.Swarm)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		collector:   metrics.NewCollector(cfg.Metrics.Namespace, nil, logger),
		swarmConfig: swarmCfg,
		catalog:     catalog,
	}

	a.otel, err = telemetry.Init(cfg.Telemetry, logger, telemetry.WithServiceVersion(Version))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	if generator == nil {
		generator = newGenerator(cfg.LLM, a.collector, logger)
	}
	a.generator = generator

	if err := a.openStores(ctx); err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = metricsAddr
	}
	if cfg.Metrics.Enabled {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = cfg.Metrics.Addr
		a.metricsServer = server.NewMetricsManager(a.collector.Gatherer(), srvCfg, logger)
		if err := a.metricsServer.Start(); err != nil {
			_ = a.close(ctx)
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	return a, nil
}

// newGenerator 创建带限流、重试与熔断的 OpenAI 兼容生成器
func newGenerator(cfg config.LLMConfig, collector *metrics.Collector, logger *zap.Logger) llm.Generator {
	provider := openaicompat.New(openaicompat.Config{
		ProviderName: cfg.Provider,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		DefaultModel: cfg.Model,
		Timeout:      cfg.Timeout,
		EndpointPath: cfg.EndpointPath,
	}, nil, logger)
	return llm.NewProviderGenerator(provider, generatorConfig(cfg), collector, logger)
}

func generatorConfig(cfg config.LLMConfig) llm.GeneratorConfig {
	gc := llm.DefaultGeneratorConfig()
	gc.Model = cfg.Model
	gc.RateLimitRPS = cfg.RateLimitRPS
	if cfg.RateBurst > 0 {
		gc.RateBurst = cfg.RateBurst
	}
	if cfg.MaxRetries >= 0 {
		gc.Retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.BreakerThreshold > 0 {
		gc.Breaker.Threshold = cfg.BreakerThreshold
	}
	return gc
}

// openStores 打开已启用的置信度快照与审计日志存储
func (a *app) openStores(ctx context.Context) error {
	if a.cfg.Redis.Enabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = a.cfg.Redis.Addr
		cacheCfg.Password = a.cfg.Redis.Password
		cacheCfg.DB = a.cfg.Redis.DB
		if a.cfg.Redis.KeyPrefix != "" {
			cacheCfg.KeyPrefix = a.cfg.Redis.KeyPrefix
		}
		if a.cfg.Redis.PoolSize > 0 {
			cacheCfg.PoolSize = a.cfg.Redis.PoolSize
		}
		cacheCfg.MinIdleConns = a.cfg.Redis.MinIdleConns

		manager, err := cache.NewManager(cacheCfg, a.collector, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		a.cache = manager
		store, err := persistence.NewConfidenceStore(persistence.StoreTypeRedis, manager, a.logger)
		if err != nil {
			return err
		}
		a.confidenceStore = store
	}

	if a.cfg.Database.Enabled {
		pm, err := database.Open(a.cfg.Database, a.collector, a.logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		a.db = pm
		store, err := persistence.NewOutcomeStore(ctx, persistence.StoreTypeGorm, pm, a.logger)
		if err != nil {
			return err
		}
		a.outcomeStore = store
	}
	return nil
}

// swarmOptions 返回引擎与常驻群体共用的选项
func (a *app) swarmOptions() []swarm.Option {
	opts := []swarm.Option{
		swarm.WithLogger(a.logger),
		swarm.WithMetrics(a.collector),
		swarm.WithCatalog(a.catalog),
	}
	if a.cfg.Swarm.Seed != 0 {
		opts = append(opts, swarm.WithSeed(uint64(a.cfg.Swarm.Seed)))
	}
	if a.confidenceStore != nil {
		opts = append(opts, swarm.WithConfidenceStore(a.confidenceStore))
	}
	if a.outcomeStore != nil {
		opts = append(opts, swarm.WithOutcomeStore(a.outcomeStore))
	}
	return opts
}

// close 按打开的逆序释放资源
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.metricsServer != nil {
		errs = append(errs, a.metricsServer.Shutdown(ctx))
	}
	if a.outcomeStore != nil {
		errs = append(errs, a.outcomeStore.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.confidenceStore != nil {
		errs = append(errs, a.confidenceStore.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.otel.Shutdown(ctx))
	return errors.Join(errs...)
}
