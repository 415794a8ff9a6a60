package swarm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 0.5, jaccard("a b c", "b c d"), 1e-9)
	assert.InDelta(t, 1.0, jaccard("Decline Politely", "politely decline"), 1e-9)
	assert.InDelta(t, 0.0, jaccard("alpha", "beta"), 1e-9)
	assert.InDelta(t, 0.0, jaccard("", "   "), 1e-9)
}

func TestCrossValidate_SingleDecision(t *testing.T) {
	in := []Decision{{AgentID: "a", Role: RoleWriter, Response: "only", Confidence: 0.9}}

	out := CrossValidate(context.Background(), in, 4)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.9, out[0].Confidence, 1e-9)
	assert.InDelta(t, 0.9, out[0].Vote, 1e-9)
}

func TestCrossValidate_Empty(t *testing.T) {
	assert.Empty(t, CrossValidate(context.Background(), nil, 4))
}

func TestCrossValidate_IdenticalSameRole(t *testing.T) {
	in := []Decision{
		{AgentID: "a", Role: RoleWriter, Response: "decline the meeting", Confidence: 0.6},
		{AgentID: "b", Role: RoleWriter, Response: "decline the meeting", Confidence: 1.0},
	}

	out := CrossValidate(context.Background(), in, 1)
	require.Len(t, out, 2)

	// 同伴分 = (1 + 0.8) / 2 = 0.9
	assert.InDelta(t, 0.9, out[0].Vote, 1e-9)
	assert.InDelta(t, 0.75, out[0].Confidence, 1e-9)
	assert.InDelta(t, 0.95, out[1].Confidence, 1e-9)

	// 输入不被修改
	assert.InDelta(t, 0.6, in[0].Confidence, 1e-9)
	assert.Zero(t, in[0].Vote)
}

func TestCrossValidate_DisjointCrossRole(t *testing.T) {
	in := []Decision{
		{AgentID: "a", Role: RoleWriter, Response: "accept", Confidence: 0.9},
		{AgentID: "b", Role: RoleAnalyzer, Response: "reject", Confidence: 0.9},
		{AgentID: "c", Role: RoleEditor, Response: "ignore", Confidence: 0.9},
	}

	out := CrossValidate(context.Background(), in, 0)
	for _, d := range out {
		// 同伴分 = (0 + 0.6) / 2 = 0.3
		assert.InDelta(t, 0.3, d.Vote, 1e-9)
		assert.InDelta(t, 0.6, d.Confidence, 1e-9)
	}
}

func TestCrossValidate_UsesReasoningWhenResponseEmpty(t *testing.T) {
	in := []Decision{
		{AgentID: "a", Role: RoleWriter, Reasoning: "same words", Confidence: 0.8},
		{AgentID: "b", Role: RoleWriter, Response: "same words", Confidence: 0.8},
	}

	out := CrossValidate(context.Background(), in, 2)
	assert.InDelta(t, 0.9, out[0].Vote, 1e-9)
}

func TestCrossValidate_FiftyDecisions(t *testing.T) {
	roles := Roles()
	in := make([]Decision, 50)
	for i := range in {
		in[i] = Decision{
			AgentID:    fmt.Sprintf("agent-%02d", i),
			Role:       roles[i%len(roles)],
			Response:   fmt.Sprintf("decline the vendor meeting option %d and propose slot %d", i%5, i%7),
			Confidence: 0.7 + float64(i%4)*0.1,
		}
	}

	start := time.Now()
	out := CrossValidate(context.Background(), in, 4)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, out, 50)
	again := CrossValidate(context.Background(), in, 0)
	for i := range out {
		assert.Equal(t, in[i].AgentID, out[i].AgentID)
		assert.InDelta(t, again[i].Confidence, out[i].Confidence, 1e-12)
		assert.InDelta(t, again[i].Vote, out[i].Vote, 1e-12)
		assert.GreaterOrEqual(t, out[i].Vote, 0.3)
		assert.LessOrEqual(t, out[i].Vote, 0.9)
		assert.InDelta(t, (in[i].Confidence+out[i].Vote)/2, out[i].Confidence, 1e-9)
	}
}
