package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/types"
	"go.uber.org/zap"
)

// majorityFraction 进入综合的决策比例（按置信度取前 ⌈0.6·n⌉）
const majorityFraction = 0.6

// synthesisMarker 综合提示词的首行，便于日志与测试识别
const synthesisMarker = "You are synthesising the consensus of an agent panel."

// ConsensusOutcome 共识构建结果
type ConsensusOutcome struct {
	Consensus     string       `json:"consensus"`
	Confidence    float64      `json:"confidence"`
	Reasoning     string       `json:"reasoning"`
	VotingResults []VoteResult `json:"voting_results"`
	Degraded      bool         `json:"degraded"`
}

// SynthesisConfig 综合调用参数
type SynthesisConfig struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// ConsensusBuilder 将验证后的决策合成为单一共识
type ConsensusBuilder struct {
	generator llm.Generator
	config    SynthesisConfig
	logger    *zap.Logger
}

// NewConsensusBuilder 创建共识构建器
func NewConsensusBuilder(generator llm.Generator, config SynthesisConfig, logger *zap.Logger) *ConsensusBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsensusBuilder{
		generator: generator,
		config:    config,
		logger:    logger.With(zap.String("component", "consensus")),
	}
}

// BuildConsensus 构建共识：
//  1. 按置信度降序（同分按 Agent ID）取前 ⌈0.6·n⌉ 作为多数派；
//  2. 由生成器综合多数派意见，冲突时偏向权重更高者；
//  3. 共识置信度为全部验证后决策置信度的平均值；
//  4. 按 (角色, 主专长) 分组统计投票。
//
// 综合输出为空、JSON 无法解析或生成器失败时，回落到最佳单个决策并标记 Degraded。
func (b *ConsensusBuilder) BuildConsensus(ctx context.Context, task Task, validated []Decision) ConsensusOutcome {
	if len(validated) == 0 {
		return ConsensusOutcome{VotingResults: []VoteResult{}}
	}

	ranked := rankByConfidence(validated)
	majority := ranked[:majoritySize(len(ranked))]

	outcome := ConsensusOutcome{
		Confidence:    meanConfidence(validated),
		VotingResults: tallyVotes(validated),
	}

	recommendation, rationale, err := b.synthesize(ctx, task, majority)
	if err != nil {
		best := ranked[0]
		b.logger.Warn("consensus synthesis degraded",
			zap.String("task_id", task.ID),
			zap.String("fallback_agent", best.AgentID),
			zap.Error(err),
		)
		outcome.Consensus = best.Text()
		outcome.Reasoning = fmt.Sprintf("Synthesis unavailable; using highest-confidence decision from %s (%s)", best.AgentID, best.Role)
		outcome.Degraded = true
		return outcome
	}

	outcome.Consensus = recommendation
	outcome.Reasoning = rationale
	if outcome.Reasoning == "" {
		outcome.Reasoning = fmt.Sprintf("Synthesised from %d of %d decisions weighted by confidence", len(majority), len(validated))
	}
	return outcome
}

func (b *ConsensusBuilder) synthesize(ctx context.Context, task Task, majority []Decision) (string, string, error) {
	if b.generator == nil {
		return "", "", ErrGeneratorNotSet
	}
	out, err := b.generator.Generate(ctx, buildSynthesisPrompt(task, majority), b.config.Temperature, b.config.MaxTokens)
	if err != nil {
		return "", "", types.NewError(types.ErrMalformedSynthesis, "synthesis call failed").WithCause(err)
	}
	return parseSynthesisOutput(out)
}

// synthesisOutput 综合输出的 JSON 结构
type synthesisOutput struct {
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
}

// parseSynthesisOutput 解析综合输出。非 JSON 纯文本直接作为建议；
// 空输出、形似 JSON 但无法解析、或 recommendation 为空视为畸形输出。
func parseSynthesisOutput(raw string) (string, string, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return "", "", types.NewError(types.ErrMalformedSynthesis, "empty synthesis output")
	}
	if !strings.HasPrefix(text, "{") {
		return text, "", nil
	}
	var out synthesisOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return "", "", types.NewError(types.ErrMalformedSynthesis, "unparsable synthesis output").WithCause(err)
	}
	if strings.TrimSpace(out.Recommendation) == "" {
		return "", "", types.NewError(types.ErrMalformedSynthesis, "synthesis output has no recommendation")
	}
	return strings.TrimSpace(out.Recommendation), strings.TrimSpace(out.Rationale), nil
}

func buildSynthesisPrompt(task Task, majority []Decision) string {
	var b strings.Builder
	b.WriteString(synthesisMarker)
	b.WriteString("\n\nTask:\n")
	b.WriteString(task.Description)
	b.WriteString("\n\nPanel inputs, highest weight first:\n")
	for i, d := range majority {
		fmt.Fprintf(&b, "\n[%d] role=%s specialization=%s weight=%.2f\n%s\n",
			i+1, d.Role, d.PrimarySpecialization(), d.Confidence, d.Text())
	}
	b.WriteString(`
Combine these inputs into one recommendation. Where they conflict, prefer the higher-weighted input.
Respond with a single JSON object and nothing else:
{"recommendation": "<the combined recommendation>", "rationale": "<how the inputs were combined>"}`)
	return b.String()
}

// rankByConfidence 按置信度降序排序副本，同分按 Agent ID 升序
func rankByConfidence(decisions []Decision) []Decision {
	ranked := make([]Decision, len(decisions))
	copy(ranked, decisions)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].AgentID < ranked[j].AgentID
	})
	return ranked
}

func majoritySize(n int) int {
	size := int(math.Ceil(majorityFraction * float64(n)))
	if size < 1 {
		size = 1
	}
	if size > n {
		size = n
	}
	return size
}

func meanConfidence(decisions []Decision) float64 {
	if len(decisions) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range decisions {
		sum += d.Confidence
	}
	return clamp(sum/float64(len(decisions)), 0, 1)
}

// tallyVotes 按 "role:primarySpecialization" 分组，权重为置信度之和，按权重降序
func tallyVotes(decisions []Decision) []VoteResult {
	index := make(map[string]int)
	results := make([]VoteResult, 0, len(decisions))
	for _, d := range decisions {
		option := string(d.Role) + ":" + d.PrimarySpecialization()
		i, ok := index[option]
		if !ok {
			i = len(results)
			index[option] = i
			results = append(results, VoteResult{Option: option})
		}
		results[i].VoteCount++
		results[i].Weight += d.Confidence
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Weight != results[j].Weight {
			return results[i].Weight > results[j].Weight
		}
		return results[i].Option < results[j].Option
	})
	return results
}
