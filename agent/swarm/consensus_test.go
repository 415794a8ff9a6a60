package swarm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/BaSui01/agentswarm/testutil/fixtures"
	"github.com/BaSui01/agentswarm/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func newTestBuilder(gen *mocks.MockGenerator) *ConsensusBuilder {
	return NewConsensusBuilder(gen, SynthesisConfig{Temperature: 0.3, MaxTokens: 256}, zap.NewNop())
}

func sampleDecisions() []Decision {
	return []Decision{
		{AgentID: "writer/formal", Role: RoleWriter, Specializations: []string{"formal"}, Response: "Decline formally", Confidence: 0.9},
		{AgentID: "writer/concise", Role: RoleWriter, Specializations: []string{"concise"}, Response: "Decline briefly", Confidence: 0.8},
		{AgentID: "negotiator/vendor", Role: RoleNegotiator, Specializations: []string{"vendor"}, Response: "Propose a call", Confidence: 0.6},
		{AgentID: "editor/tone", Role: RoleEditor, Specializations: []string{"tone"}, Response: "Soften the tone", Confidence: 0.7},
		{AgentID: "analyzer/risk", Role: RoleAnalyzer, Specializations: []string{"risk"}, Response: "Keep relationship", Confidence: 0.5},
	}
}

func TestBuildConsensus_Synthesis(t *testing.T) {
	gen := mocks.NewMockGenerator().
		WithResponse(fixtures.SynthesisJSON("Send a polite formal decline", "Writers agree"))
	builder := newTestBuilder(gen)

	outcome := builder.BuildConsensus(context.Background(), Task{ID: "t1", Description: "decline vendor"}, sampleDecisions())

	assert.Equal(t, "Send a polite formal decline", outcome.Consensus)
	assert.Equal(t, "Writers agree", outcome.Reasoning)
	assert.False(t, outcome.Degraded)
	// 平均值覆盖全部决策
	assert.InDelta(t, (0.9+0.8+0.6+0.7+0.5)/5, outcome.Confidence, 1e-9)

	// 多数派 = ⌈0.6·5⌉ = 3，按置信度降序
	calls := gen.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Prompt
	assert.Contains(t, prompt, synthesisMarker)
	assert.Contains(t, prompt, "Decline formally")
	assert.Contains(t, prompt, "Decline briefly")
	assert.Contains(t, prompt, "Soften the tone")
	assert.NotContains(t, prompt, "Propose a call")
	assert.NotContains(t, prompt, "Keep relationship")
	assert.Less(t, strings.Index(prompt, "Decline formally"), strings.Index(prompt, "Soften the tone"))
	assert.Equal(t, 0.3, calls[0].Temperature)
}

func TestBuildConsensus_PlainTextAccepted(t *testing.T) {
	gen := mocks.NewMockGenerator().WithResponse("Just decline politely.")
	outcome := newTestBuilder(gen).BuildConsensus(context.Background(), Task{ID: "t"}, sampleDecisions())

	assert.Equal(t, "Just decline politely.", outcome.Consensus)
	assert.False(t, outcome.Degraded)
	assert.NotEmpty(t, outcome.Reasoning)
}

func TestBuildConsensus_Degraded(t *testing.T) {
	tests := []struct {
		name string
		gen  *mocks.MockGenerator
	}{
		{"generator error", mocks.NewMockGenerator().WithError(errors.New("boom"))},
		{"empty output", mocks.NewMockGenerator().WithResponse("   ")},
		{"broken json", mocks.NewMockGenerator().WithResponse(`{"recommendation": `)},
		{"json without recommendation", mocks.NewMockGenerator().WithResponse(`{"rationale": "none"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := newTestBuilder(tt.gen).BuildConsensus(context.Background(), Task{ID: "t"}, sampleDecisions())

			assert.True(t, outcome.Degraded)
			assert.Equal(t, "Decline formally", outcome.Consensus)
			assert.InDelta(t, 0.7, outcome.Confidence, 1e-9)
			assert.Contains(t, outcome.Reasoning, "writer/formal")
		})
	}
}

func TestBuildConsensus_CodeFencedJSON(t *testing.T) {
	gen := mocks.NewMockGenerator().WithResponse("```json\n" + fixtures.SynthesisJSON("Fenced", "ok") + "\n```")
	outcome := newTestBuilder(gen).BuildConsensus(context.Background(), Task{ID: "t"}, sampleDecisions())

	assert.Equal(t, "Fenced", outcome.Consensus)
	assert.False(t, outcome.Degraded)
}

func TestBuildConsensus_Empty(t *testing.T) {
	gen := mocks.NewMockGenerator()
	outcome := newTestBuilder(gen).BuildConsensus(context.Background(), Task{ID: "t"}, nil)

	assert.Zero(t, outcome.Confidence)
	assert.Empty(t, outcome.VotingResults)
	assert.Zero(t, gen.CallCount())
}

func TestTallyVotes(t *testing.T) {
	votes := tallyVotes(sampleDecisions())

	require.Len(t, votes, 5)
	assert.Equal(t, "writer:formal", votes[0].Option)
	assert.Equal(t, 1, votes[0].VoteCount)

	grouped := tallyVotes([]Decision{
		{AgentID: "a", Role: RoleWriter, Specializations: []string{"formal"}, Confidence: 0.4},
		{AgentID: "b", Role: RoleWriter, Specializations: []string{"formal"}, Confidence: 0.5},
		{AgentID: "c", Role: RoleEditor, Specializations: []string{"tone"}, Confidence: 0.8},
	})
	require.Len(t, grouped, 2)
	assert.Equal(t, "writer:formal", grouped[0].Option)
	assert.Equal(t, 2, grouped[0].VoteCount)
	assert.InDelta(t, 0.9, grouped[0].Weight, 1e-9)
	assert.Equal(t, "editor:tone", grouped[1].Option)
}

func TestMajoritySize(t *testing.T) {
	for n, want := range map[int]int{1: 1, 2: 2, 3: 2, 5: 3, 7: 5, 10: 6} {
		assert.Equal(t, want, majoritySize(n), "n=%d", n)
	}
}

// 投票权重之和等于验证后置信度之和，票数之和等于决策数
func TestProperty_VotingTotals(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "n")
		decisions := make([]Decision, n)
		sum := 0.0
		for i := range decisions {
			role := rapid.SampledFrom(Roles()).Draw(rt, "role")
			spec := rapid.SampledFrom([]string{"formal", "tone", "vendor", "risk"}).Draw(rt, "spec")
			c := rapid.Float64Range(0, 1).Draw(rt, "confidence")
			decisions[i] = Decision{
				AgentID:         fmt.Sprintf("agent-%d", i),
				Role:            role,
				Specializations: []string{spec},
				Confidence:      c,
			}
			sum += c
		}

		votes := tallyVotes(decisions)
		weight, count := 0.0, 0
		for i, v := range votes {
			weight += v.Weight
			count += v.VoteCount
			if i > 0 && votes[i-1].Weight < v.Weight {
				rt.Fatalf("votes not sorted by weight")
			}
		}
		if math.Abs(weight-sum) > 1e-9 {
			rt.Fatalf("weight total %v != confidence total %v", weight, sum)
		}
		if count != n {
			rt.Fatalf("vote count %d != decisions %d", count, n)
		}
	})
}
