package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/agentswarm/internal/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ============================================================
// 动作结果审计记录
// ============================================================

// OutcomeRecord 一次动作结果及其对置信度的影响
type OutcomeRecord struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	TaskID           string    `gorm:"size:64;index" json:"task_id"`
	AgentID          string    `gorm:"size:100;not null;index:idx_agent_created" json:"agent_id"`
	Action           string    `gorm:"size:64" json:"action"`
	Outcome          string    `gorm:"size:16;not null" json:"outcome"` // success / failure
	ConfidenceBefore float64   `json:"confidence_before"`
	ConfidenceAfter  float64   `json:"confidence_after"`
	CapabilityBefore float64   `json:"capability_before"`
	CapabilityAfter  float64   `json:"capability_after"`
	CreatedAt        time.Time `gorm:"index:idx_agent_created" json:"created_at"`
}

func (OutcomeRecord) TableName() string {
	return "sw_agent_outcomes"
}

// outcomeWriteRetries 写入冲突（锁、死锁）时的重试次数
const outcomeWriteRetries = 3

// GormOutcomeStore is a GORM-backed OutcomeStore. Works with any driver
// the database pool was opened with (postgres, mysql, sqlite).
type GormOutcomeStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewGormOutcomeStore migrates the outcome table and returns the store
func NewGormOutcomeStore(ctx context.Context, pm *database.PoolManager, logger *zap.Logger) (*GormOutcomeStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pm.DB().WithContext(ctx).AutoMigrate(&OutcomeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate outcomes: %w", err)
	}
	return &GormOutcomeStore{
		pool:   pm,
		logger: logger.With(zap.String("component", "outcome_store")),
	}, nil
}

// Close is a no-op; the database pool is owned by the caller
func (s *GormOutcomeStore) Close() error {
	return nil
}

// Ping checks if the store is healthy
func (s *GormOutcomeStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Append inserts a record inside a retried transaction
func (s *GormOutcomeStore) Append(ctx context.Context, record *OutcomeRecord) error {
	if record == nil || record.AgentID == "" {
		return ErrInvalidInput
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	err := s.pool.WithTransactionRetry(ctx, outcomeWriteRetries, func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		s.logger.Error("failed to append outcome",
			zap.String("agent_id", record.AgentID),
			zap.String("task_id", record.TaskID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to append outcome: %w", err)
	}
	return nil
}

// List returns the newest records first
func (s *GormOutcomeStore) List(ctx context.Context, agentID string, limit int) ([]OutcomeRecord, error) {
	var records []OutcomeRecord
	err := s.pool.Query(ctx, "list_outcomes", func(db *gorm.DB) error {
		q := db.Model(&OutcomeRecord{})
		if agentID != "" {
			q = q.Where("agent_id = ?", agentID)
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Order("created_at DESC").Order("id DESC").Find(&records).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	return records, nil
}
