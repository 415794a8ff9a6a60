package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestScoreAgent(t *testing.T) {
	tests := []struct {
		name  string
		task  Task
		agent *Agent
		want  float64
	}{
		{
			name:  "keyword in role name",
			task:  Task{Description: "writer needed"},
			agent: NewAgent("writer/formal", RoleWriter, []string{"formal"}, 1, 0.1),
			want:  2,
		},
		{
			name:  "keyword in specialization",
			task:  Task{Description: "formal letter"},
			agent: NewAgent("writer/formal", RoleWriter, []string{"formal"}, 1, 0.1),
			want:  1,
		},
		{
			name:  "keyword in role and specialization",
			task:  Task{Description: "Scheduler MEETING"},
			agent: NewAgent("scheduler/meeting", RoleScheduler, []string{"meeting"}, 1, 0.1),
			want:  3,
		},
		{
			name:  "email type matches specialization",
			task:  Task{Description: "zzz", Context: map[string]any{"email_type": "meeting"}},
			agent: NewAgent("scheduler/meeting", RoleScheduler, []string{"meeting"}, 1, 0.1),
			want:  3,
		},
		{
			name:  "camel case email type",
			task:  Task{Description: "zzz", Context: map[string]any{"emailType": "vendor"}},
			agent: NewAgent("negotiator/vendor", RoleNegotiator, []string{"vendor"}, 1, 0.1),
			want:  3,
		},
		{
			name:  "urgent favours scheduler",
			task:  Task{Description: "zzz", Context: map[string]any{"urgent": true}},
			agent: NewAgent("scheduler/deadline", RoleScheduler, []string{"deadline"}, 1, 0.1),
			want:  2,
		},
		{
			name:  "urgent ignored for other roles",
			task:  Task{Description: "zzz", Context: map[string]any{"urgent": true}},
			agent: NewAgent("writer/formal", RoleWriter, []string{"formal"}, 1, 0.1),
			want:  0,
		},
		{
			name:  "research flag favours researcher",
			task:  Task{Description: "zzz", Context: map[string]any{"needs_research": true}},
			agent: NewAgent("researcher/market", RoleResearcher, []string{"market"}, 1, 0.1),
			want:  3,
		},
		{
			name:  "camel case research flag",
			task:  Task{Description: "zzz", Context: map[string]any{"requiresResearch": "true"}},
			agent: NewAgent("researcher/legal", RoleResearcher, []string{"legal"}, 1, 0.1),
			want:  3,
		},
		{
			name:  "tone matches specialization",
			task:  Task{Description: "zzz", Context: map[string]any{"tone": "Formal"}},
			agent: NewAgent("writer/formal", RoleWriter, []string{"formal"}, 1, 0.1),
			want:  2,
		},
		{
			name:  "score scaled by confidence",
			task:  Task{Description: "writer formal"},
			agent: NewAgent("writer/formal", RoleWriter, []string{"formal"}, 0.5, 0.1),
			want:  1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreAgent(tt.task, tt.agent), 1e-9)
		})
	}
}

func TestSelectAgents_OrderAndCount(t *testing.T) {
	pool := []*Agent{
		NewAgent("editor/tone", RoleEditor, []string{"tone"}, 0.9, 0.1),
		NewAgent("writer/formal", RoleWriter, []string{"formal"}, 0.8, 0.1),
		NewAgent("writer/casual", RoleWriter, []string{"casual"}, 0.8, 0.1),
		NewAgent("negotiator/vendor", RoleNegotiator, []string{"vendor"}, 0.7, 0.1),
	}
	task := Task{Description: "writer", RequiredAgentCount: 3}

	selected := SelectAgents(task, pool)
	require.Len(t, selected, 3)
	// 两个 writer 同分，按 ID 升序
	assert.Equal(t, "writer/casual", selected[0].ID)
	assert.Equal(t, "writer/formal", selected[1].ID)
	// 其余均为 0 分，按 ID 升序
	assert.Equal(t, "editor/tone", selected[2].ID)
}

func TestSelectAgents_CountExceedsPool(t *testing.T) {
	pool := []*Agent{
		NewAgent("b", RoleWriter, []string{"formal"}, 0.9, 0.1),
		NewAgent("a", RoleEditor, []string{"tone"}, 0.9, 0.1),
	}
	selected := SelectAgents(Task{Description: "anything", RequiredAgentCount: 7}, pool)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].ID)
}

func TestSelectAgents_EmptyPool(t *testing.T) {
	assert.Empty(t, SelectAgents(Task{Description: "x", RequiredAgentCount: 3}, nil))
}

var selectorVocabulary = []string{
	"formal", "vendor", "meeting", "decline", "writer", "tone", "risk",
	"market", "contract", "schedule", "reply", "urgent", "legal", "data",
}

// 其他条件相同时，多匹配一个专长关键词的 Agent 得分不低于另一个
func TestProperty_SelectionMonotonicInSpecializations(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		words := rapid.SliceOfN(rapid.SampledFrom(selectorVocabulary), 1, 8).Draw(rt, "words")
		extra := rapid.SampledFrom(words).Draw(rt, "extra")
		base := rapid.SampledFrom(selectorVocabulary).Draw(rt, "base")
		role := rapid.SampledFrom(Roles()).Draw(rt, "role")
		confidence := rapid.Float64Range(0.5, 1).Draw(rt, "confidence")

		desc := ""
		for _, w := range words {
			desc += w + " "
		}
		task := Task{Description: desc}

		a := NewAgent("a", role, []string{base}, confidence, 0.1)
		b := NewAgent("b", role, []string{base, extra}, confidence, 0.1)

		if ScoreAgent(task, b) < ScoreAgent(task, a) {
			rt.Fatalf("score decreased after adding matching specialization %q", extra)
		}
	})
}

// 同一 Agent 置信度越高得分越高（不低于）
func TestProperty_SelectionMonotonicInConfidence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		words := rapid.SliceOfN(rapid.SampledFrom(selectorVocabulary), 1, 8).Draw(rt, "words")
		spec := rapid.SampledFrom(selectorVocabulary).Draw(rt, "spec")
		role := rapid.SampledFrom(Roles()).Draw(rt, "role")
		low := rapid.Float64Range(0, 1).Draw(rt, "low")
		high := rapid.Float64Range(low, 1).Draw(rt, "high")

		desc := ""
		for _, w := range words {
			desc += w + " "
		}
		task := Task{Description: desc, Context: map[string]any{"urgent": true}}

		lowAgent := NewAgent("x", role, []string{spec}, low, 0.1)
		highAgent := NewAgent("x", role, []string{spec}, high, 0.1)

		if ScoreAgent(task, highAgent) < ScoreAgent(task, lowAgent) {
			rt.Fatalf("higher confidence produced lower score")
		}
	})
}
