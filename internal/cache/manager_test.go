package cache

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentswarm/internal/metrics"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr := miniredis.RunT(t)

	manager, err := NewManager(Config{
		Addr:      mr.Addr(),
		KeyPrefix: "test:",
	}, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return mr, manager
}

func TestNewManager_ConnectionFailure(t *testing.T) {
	_, err := NewManager(Config{Addr: "127.0.0.1:1"}, nil, nil)
	assert.Error(t, err)
}

func TestManager_SetAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", 0))

	value, err := manager.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	// 底层键带前缀
	assert.True(t, mr.Exists("test:k"))
}

func TestManager_GetMiss(t *testing.T) {
	_, manager := setupTestRedis(t)

	value, err := manager.Get(context.Background(), "missing")
	assert.True(t, IsCacheMiss(err))
	assert.Empty(t, value)
}

func TestManager_TTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "short", "v", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := manager.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_JSON(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	}

	require.NoError(t, manager.SetJSON(ctx, "obj", payload{Name: "a", Confidence: 0.75}, 0))

	var got payload
	require.NoError(t, manager.GetJSON(ctx, "obj", &got))
	assert.Equal(t, payload{Name: "a", Confidence: 0.75}, got)
}

func TestManager_GetJSON_Malformed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "bad", "{oops", 0))

	var got map[string]any
	assert.Error(t, manager.GetJSON(ctx, "bad", &got))
}

func TestManager_DeleteAndKeys(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "confidence:a", "1", 0))
	require.NoError(t, manager.Set(ctx, "confidence:b", "1", 0))
	require.NoError(t, manager.Set(ctx, "other", "1", 0))

	keys, err := manager.Keys(ctx, "confidence:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"confidence:a", "confidence:b"}, keys)

	require.NoError(t, manager.Delete(ctx, "confidence:a"))
	keys, err = manager.Keys(ctx, "confidence:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"confidence:b"}, keys)

	assert.NoError(t, manager.Delete(ctx))
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	assert.ErrorIs(t, manager.Set(ctx, "k", "v", 0), ErrManagerClosed)
	_, err := manager.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.ErrorIs(t, manager.Ping(ctx), ErrManagerClosed)
	_, err = manager.Keys(ctx, "*")
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestManager_RecordsHitsAndMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("cache_test", reg, zap.NewNop())

	manager, err := NewManager(Config{Addr: mr.Addr()}, collector, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	require.NoError(t, manager.Set(ctx, "k", "v", 0))
	_, _ = manager.Get(ctx, "k")
	_, _ = manager.Get(ctx, "nope")

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			values[f.GetName()] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["cache_test_cache_hits_total"])
	assert.Equal(t, 1.0, values["cache_test_cache_misses_total"])
}
