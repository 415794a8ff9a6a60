package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/agentswarm/internal/cache"
	"github.com/BaSui01/agentswarm/internal/database"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeGorm   StoreType = "gorm"
)

// Store is the base interface for all stores
type Store interface {
	// Close closes the store
	Close() error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

// =============================================================================
// 📸 置信度快照
// =============================================================================

// ConfidenceSnapshot 单个 Agent 的置信度快照，用于跨进程恢复学习状态
type ConfidenceSnapshot struct {
	AgentID      string             `json:"agent_id"`
	Confidence   float64            `json:"confidence"`
	Capabilities map[string]float64 `json:"capabilities,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ConfidenceStore 置信度快照存储
type ConfidenceStore interface {
	Store

	// Save 保存（覆盖）快照
	Save(ctx context.Context, snapshot ConfidenceSnapshot) error

	// Load 读取单个 Agent 的快照，不存在时返回 ErrNotFound
	Load(ctx context.Context, agentID string) (ConfidenceSnapshot, error)

	// LoadAll 读取全部快照，按 AgentID 排序
	LoadAll(ctx context.Context) ([]ConfidenceSnapshot, error)
}

// =============================================================================
// 📜 结果审计日志
// =============================================================================

// OutcomeStore 动作结果审计日志
type OutcomeStore interface {
	Store

	// Append 追加一条记录，ID 为空时自动生成
	Append(ctx context.Context, record *OutcomeRecord) error

	// List 按时间倒序返回 Agent 的最近记录。agentID 为空时返回全部，limit <= 0 不限制
	List(ctx context.Context, agentID string, limit int) ([]OutcomeRecord, error)
}

// NewConfidenceStore 按类型创建置信度存储。redis 类型需要 cache 管理器。
func NewConfidenceStore(storeType StoreType, manager *cache.Manager, logger *zap.Logger) (ConfidenceStore, error) {
	switch storeType {
	case StoreTypeMemory, "":
		return NewMemoryConfidenceStore(), nil
	case StoreTypeRedis:
		if manager == nil {
			return nil, fmt.Errorf("redis confidence store requires a cache manager")
		}
		return NewRedisConfidenceStore(manager, logger), nil
	default:
		return nil, fmt.Errorf("unsupported confidence store type: %s", storeType)
	}
}

// NewOutcomeStore 按类型创建结果日志。gorm 类型需要数据库连接池。
func NewOutcomeStore(ctx context.Context, storeType StoreType, pm *database.PoolManager, logger *zap.Logger) (OutcomeStore, error) {
	switch storeType {
	case StoreTypeMemory, "":
		return NewMemoryOutcomeStore(), nil
	case StoreTypeGorm:
		if pm == nil {
			return nil, fmt.Errorf("gorm outcome store requires a database pool")
		}
		return NewGormOutcomeStore(ctx, pm, logger)
	default:
		return nil, fmt.Errorf("unsupported outcome store type: %s", storeType)
	}
}
