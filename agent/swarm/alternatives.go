package swarm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/agentswarm/llm"
	"go.uber.org/zap"
)

const (
	// minorityThreshold 置信度低于该值的决策视为少数派
	minorityThreshold = 0.7
	// maxAlternatives 备选方案上限
	maxAlternatives = 3
)

// alternativesMarker 备选方案提示词首行
const alternativesMarker = "You are reviewing minority opinions from an agent panel."

// listMarker 匹配行首的列表标记：-、*、•、1.、2)
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

// AlternativeGenerator 根据少数派意见生成备选方案
type AlternativeGenerator struct {
	generator llm.Generator
	config    SynthesisConfig
	logger    *zap.Logger
}

// NewAlternativeGenerator 创建备选方案生成器
func NewAlternativeGenerator(generator llm.Generator, config SynthesisConfig, logger *zap.Logger) *AlternativeGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlternativeGenerator{
		generator: generator,
		config:    config,
		logger:    logger.With(zap.String("component", "alternatives")),
	}
}

// GenerateAlternatives 没有少数派时直接返回空列表且不调用生成器；
// 生成器失败同样返回空列表。结果最多 3 条。
func (g *AlternativeGenerator) GenerateAlternatives(ctx context.Context, validated []Decision, consensus string) []string {
	var minority []Decision
	for _, d := range validated {
		if d.Confidence < minorityThreshold {
			minority = append(minority, d)
		}
	}
	if len(minority) == 0 || g.generator == nil {
		return []string{}
	}

	out, err := g.generator.Generate(ctx, buildAlternativesPrompt(minority, consensus), g.config.Temperature, g.config.MaxTokens)
	if err != nil {
		g.logger.Warn("alternative generation failed",
			zap.Int("minority", len(minority)),
			zap.Error(err),
		)
		return []string{}
	}
	return parseAlternatives(out)
}

// parseAlternatives 按行切分，去除列表标记与空行，最多保留 3 条
func parseAlternatives(raw string) []string {
	alternatives := make([]string, 0, maxAlternatives)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		alternatives = append(alternatives, line)
		if len(alternatives) == maxAlternatives {
			break
		}
	}
	return alternatives
}

func buildAlternativesPrompt(minority []Decision, consensus string) string {
	var b strings.Builder
	b.WriteString(alternativesMarker)
	b.WriteString("\n\nAgreed consensus:\n")
	b.WriteString(consensus)
	b.WriteString("\n\nMinority opinions:\n")
	for _, d := range minority {
		fmt.Fprintf(&b, "- (%s, confidence %.2f) %s\n", d.Role, d.Confidence, d.Text())
	}
	b.WriteString("\nList up to 3 distinct alternative approaches that differ from the consensus, one per line, no commentary.")
	return b.String()
}
