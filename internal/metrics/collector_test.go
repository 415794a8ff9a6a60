package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector("test", prometheus.NewRegistry(), zap.NewNop())
}

func TestNewCollector(t *testing.T) {
	collector := newTestCollector(t)

	assert.NotNil(t, collector.tasksTotal)
	assert.NotNil(t, collector.agentCallsTotal)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.cacheHits)
	assert.NotNil(t, collector.Gatherer())
}

func TestNewCollector_IndependentRegistries(t *testing.T) {
	// 同名 namespace 在不同 Registry 下不会冲突
	assert.NotPanics(t, func() {
		NewCollector("dup", nil, nil)
		NewCollector("dup", nil, nil)
	})
}

func TestCollector_RecordTask(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordTask("combinatorial", "success", 2*time.Second)
	collector.RecordTask("combinatorial", "success", time.Second)
	collector.RecordTask("roster", "error", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.tasksTotal.WithLabelValues("combinatorial", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.tasksTotal.WithLabelValues("roster", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.taskDuration))
}

func TestCollector_RecordPhaseAndConfidence(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordPhase("decide", 100*time.Millisecond)
	collector.RecordPhase("validate", 50*time.Millisecond)
	collector.RecordConsensusConfidence(0.82)

	assert.Equal(t, 2, testutil.CollectAndCount(collector.phaseDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.consensusConfidence))
}

func TestCollector_AgentMetrics(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordAgentCall("writer", "success", 300*time.Millisecond)
	collector.RecordAgentCall("writer", "error", 20*time.Second)
	collector.SetAgentConfidence("agent-1", 0.9)
	collector.SetAgentConfidence("agent-1", 0.8)
	collector.RecordOutcome("success")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.agentCallsTotal.WithLabelValues("writer", "error")))
	assert.InDelta(t, 0.8, testutil.ToFloat64(collector.agentConfidence.WithLabelValues("agent-1")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.outcomesTotal.WithLabelValues("success")))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordLLMRequest("openai", "gpt-4o-mini", "success", time.Second, 100, 50)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("openai", "gpt-4o-mini", "success")))
	assert.Equal(t, 100.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "prompt")))
	assert.Equal(t, 50.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "completion")))
}

func TestCollector_CacheAndDB(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordCacheHit("redis")
	collector.RecordCacheHit("redis")
	collector.RecordCacheMiss("redis")
	collector.RecordDBQuery("postgres", "insert", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheMisses.WithLabelValues("redis")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.dbQueryDuration))
}

func TestCollector_Gather(t *testing.T) {
	collector := newTestCollector(t)
	collector.RecordTask("roster", "success", time.Second)

	families, err := collector.Gatherer().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "test_swarm_tasks_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCollector_NilSafe(t *testing.T) {
	var collector *Collector

	assert.NotPanics(t, func() {
		collector.RecordTask("m", "s", time.Second)
		collector.RecordPhase("p", time.Second)
		collector.RecordConsensusConfidence(0.5)
		collector.RecordAgentCall("r", "s", time.Second)
		collector.SetAgentConfidence("a", 0.5)
		collector.RecordOutcome("success")
		collector.RecordLLMRequest("p", "m", "s", time.Second, 1, 1)
		collector.RecordCacheHit("c")
		collector.RecordCacheMiss("c")
		collector.RecordDBQuery("d", "o", time.Second)
		_ = collector.Gatherer()
	})
}
