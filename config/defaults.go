// =============================================================================
// 📦 AgentSwarm 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Swarm:     DefaultSwarmConfig(),
		LLM:       DefaultLLMConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultSwarmConfig 返回默认群体配置
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		DefaultAgentCount:    7,
		ConsensusThreshold:   0.7,
		AgentTimeout:         20 * time.Second,
		MaxParallel:          8,
		MinInitialConfidence: 0.7,
		MaxInitialConfidence: 1.0,
		LearningRate:         0.1,
		ExecutionThreshold:   0.7,
		DecisionTemperature:  0.7,
		DecisionMaxTokens:    512,
		SynthesisTemperature: 0.3,
		SynthesisMaxTokens:   768,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:         "openai",
		BaseURL:          "https://api.openai.com",
		EndpointPath:     "/v1/chat/completions",
		Model:            "gpt-4o-mini",
		Timeout:          30 * time.Second,
		MaxRetries:       1,
		RateLimitRPS:     10,
		RateBurst:        20,
		BreakerThreshold: 5,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		KeyPrefix:    "agentswarm:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         false,
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "agentswarm",
		Name:            "agentswarm.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentswarm",
		SampleRate:   0.1,
		Insecure:     true,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "agentswarm",
		Addr:      ":9091",
	}
}
