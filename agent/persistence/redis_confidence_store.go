package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/agentswarm/internal/cache"
	"go.uber.org/zap"
)

const (
	confidenceKeyPrefix = "confidence:"
	// DefaultSnapshotTTL 快照保留时间，学习状态在此期间无更新即过期
	DefaultSnapshotTTL = 30 * 24 * time.Hour
)

// RedisConfidenceStore is a Redis-based implementation of ConfidenceStore.
// Snapshots are stored as JSON under "<prefix>confidence:<agentID>".
type RedisConfidenceStore struct {
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisConfidenceStore creates a new Redis-based confidence store
func NewRedisConfidenceStore(manager *cache.Manager, logger *zap.Logger) *RedisConfidenceStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisConfidenceStore{
		cache:  manager,
		ttl:    DefaultSnapshotTTL,
		logger: logger.With(zap.String("component", "confidence_store")),
	}
}

// WithTTL overrides the snapshot TTL
func (s *RedisConfidenceStore) WithTTL(ttl time.Duration) *RedisConfidenceStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Close is a no-op; the cache manager is owned by the caller
func (s *RedisConfidenceStore) Close() error {
	return nil
}

// Ping checks if the store is healthy
func (s *RedisConfidenceStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// Save writes the snapshot
func (s *RedisConfidenceStore) Save(ctx context.Context, snapshot ConfidenceSnapshot) error {
	if snapshot.AgentID == "" {
		return ErrInvalidInput
	}
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}
	if err := s.cache.SetJSON(ctx, confidenceKeyPrefix+snapshot.AgentID, snapshot, s.ttl); err != nil {
		return fmt.Errorf("failed to save confidence snapshot: %w", err)
	}
	return nil
}

// Load reads a single snapshot
func (s *RedisConfidenceStore) Load(ctx context.Context, agentID string) (ConfidenceSnapshot, error) {
	var snap ConfidenceSnapshot
	err := s.cache.GetJSON(ctx, confidenceKeyPrefix+agentID, &snap)
	if cache.IsCacheMiss(err) {
		return ConfidenceSnapshot{}, ErrNotFound
	}
	if errors.Is(err, cache.ErrManagerClosed) {
		return ConfidenceSnapshot{}, ErrStoreClosed
	}
	if err != nil {
		return ConfidenceSnapshot{}, fmt.Errorf("failed to load confidence snapshot: %w", err)
	}
	return snap, nil
}

// LoadAll scans every snapshot key
func (s *RedisConfidenceStore) LoadAll(ctx context.Context) ([]ConfidenceSnapshot, error) {
	keys, err := s.cache.Keys(ctx, confidenceKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list confidence snapshots: %w", err)
	}

	out := make([]ConfidenceSnapshot, 0, len(keys))
	for _, key := range keys {
		agentID := strings.TrimPrefix(key, confidenceKeyPrefix)
		snap, err := s.Load(ctx, agentID)
		if errors.Is(err, ErrNotFound) {
			// 扫描与读取之间过期
			continue
		}
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", zap.String("agent_id", agentID), zap.Error(err))
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}
