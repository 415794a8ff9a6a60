// =============================================================================
// 📦 AgentSwarm 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("AGENTSWARM").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 AgentSwarm 的完整配置结构
type Config struct {
	// Swarm 群体共识配置
	Swarm SwarmConfig `yaml:"swarm" env:"SWARM"`

	// LLM 文本生成配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Redis 置信度快照存储
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 执行结果审计日志
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// SwarmConfig 群体共识配置
type SwarmConfig struct {
	// 默认参与 Agent 数
	DefaultAgentCount int `yaml:"default_agent_count" env:"DEFAULT_AGENT_COUNT"`
	// 共识阈值（仅用于报告 ThresholdMet）
	ConsensusThreshold float64 `yaml:"consensus_threshold" env:"CONSENSUS_THRESHOLD"`
	// 单个 Agent 决策超时
	AgentTimeout time.Duration `yaml:"agent_timeout" env:"AGENT_TIMEOUT"`
	// 决策与交叉验证的最大并发
	MaxParallel int `yaml:"max_parallel" env:"MAX_PARALLEL"`
	// 初始置信度范围
	MinInitialConfidence float64 `yaml:"min_initial_confidence" env:"MIN_INITIAL_CONFIDENCE"`
	MaxInitialConfidence float64 `yaml:"max_initial_confidence" env:"MAX_INITIAL_CONFIDENCE"`
	// 学习率
	LearningRate float64 `yaml:"learning_rate" env:"LEARNING_RATE"`
	// 执行门限：低于该置信度的动作被拒绝
	ExecutionThreshold float64 `yaml:"execution_threshold" env:"EXECUTION_THRESHOLD"`
	// 随机种子，0 表示使用当前时间
	Seed int64 `yaml:"seed" env:"SEED"`
	// 决策生成参数
	DecisionTemperature float64 `yaml:"decision_temperature" env:"DECISION_TEMPERATURE"`
	DecisionMaxTokens   int     `yaml:"decision_max_tokens" env:"DECISION_MAX_TOKENS"`
	// 综合与备选方案生成参数
	SynthesisTemperature float64 `yaml:"synthesis_temperature" env:"SYNTHESIS_TEMPERATURE"`
	SynthesisMaxTokens   int     `yaml:"synthesis_max_tokens" env:"SYNTHESIS_MAX_TOKENS"`
	// 角色 × 专长目录，为空时使用内置目录
	Catalog []RoleConfig `yaml:"catalog" env:"CATALOG"`
}

// RoleConfig 目录中的一个角色及其专长
type RoleConfig struct {
	Role            string   `yaml:"role"`
	Specializations []string `yaml:"specializations"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Provider 名称（用于日志与指标）
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 补全接口路径
	EndpointPath string `yaml:"endpoint_path" env:"ENDPOINT_PATH"`
	// 模型
	Model string `yaml:"model" env:"MODEL"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 每秒请求数上限，<=0 不限流
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateBurst    int     `yaml:"rate_burst" env:"RATE_BURST"`
	// 熔断阈值
	BreakerThreshold int `yaml:"breaker_threshold" env:"BREAKER_THRESHOLD"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用置信度快照
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 是否启用审计日志
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// 是否使用明文 gRPC
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 监听地址，例如 ":9091"
	Addr string `yaml:"addr" env:"ADDR"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	strict     bool
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTSWARM"}
}

// WithConfigPath 设置配置文件路径，文件不存在时使用默认值
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithStrict 拒绝 YAML 中的未知字段
func (l *Loader) WithStrict(strict bool) *Loader {
	l.strict = strict
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 按 默认值 → YAML 文件 → 环境变量 的顺序加载配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := bindEnv(cfg, l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// placeholder 匹配 YAML 中的 ${VAR}，裸 $ 保持原样
var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandPlaceholders 用环境变量替换 ${VAR}，未设置的变量替换为空串
func expandPlaceholders(data []byte) []byte {
	return placeholder.ReplaceAllFunc(data, func(m []byte) []byte {
		name := placeholder.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(expandPlaceholders(data)))
	dec.KnownFields(l.strict)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// =============================================================================
// 🔍 校验
// =============================================================================

// Validate 校验配置，返回所有问题的合并错误
func (c *Config) Validate() error {
	var errs []error

	s := c.Swarm
	if s.DefaultAgentCount <= 0 {
		errs = append(errs, errors.New("swarm.default_agent_count must be positive"))
	}
	if s.ConsensusThreshold < 0 || s.ConsensusThreshold > 1 {
		errs = append(errs, errors.New("swarm.consensus_threshold must be between 0 and 1"))
	}
	if s.ExecutionThreshold < 0 || s.ExecutionThreshold > 1 {
		errs = append(errs, errors.New("swarm.execution_threshold must be between 0 and 1"))
	}
	if s.MinInitialConfidence < 0 || s.MaxInitialConfidence > 1 || s.MinInitialConfidence > s.MaxInitialConfidence {
		errs = append(errs, errors.New("swarm initial confidence range must satisfy 0 <= min <= max <= 1"))
	}
	if s.LearningRate <= 0 || s.LearningRate > 1 {
		errs = append(errs, errors.New("swarm.learning_rate must be in (0, 1]"))
	}
	if s.MaxParallel <= 0 {
		errs = append(errs, errors.New("swarm.max_parallel must be positive"))
	}
	for i, rc := range s.Catalog {
		if rc.Role == "" || len(rc.Specializations) == 0 {
			errs = append(errs, fmt.Errorf("swarm.catalog[%d] needs a role and at least one specialization", i))
		}
	}
	if !validTemperature(s.DecisionTemperature) || !validTemperature(s.SynthesisTemperature) {
		errs = append(errs, errors.New("temperature must be between 0 and 2"))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Database.Enabled {
		switch c.Database.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("unsupported database driver: %q", c.Database.Driver))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %w", errors.Join(errs...))
	}
	return nil
}

func validTemperature(t float64) bool {
	return t >= 0 && t <= 2
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
