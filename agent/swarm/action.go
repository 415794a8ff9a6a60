package swarm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentswarm/llm"
	"go.uber.org/zap"
)

// =============================================================================
// 🎬 动作
// =============================================================================

// ActionKind 动作标识
type ActionKind string

const (
	ActionCategorize ActionKind = "categorize"
	ActionPrioritize ActionKind = "prioritize"
	ActionDraftReply ActionKind = "draft_reply"
	ActionSchedule   ActionKind = "schedule"
	ActionSummarize  ActionKind = "summarize"
	ActionArchive    ActionKind = "archive"
	ActionFlag       ActionKind = "flag"
	ActionFollowUp   ActionKind = "follow_up"
)

// ParseActionKind 规范化动作标识："Draft Reply"、"draft-reply" 都映射为 draft_reply
func ParseActionKind(s string) ActionKind {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return ActionKind(s)
}

// Action 封闭的动作和类型，只有本包内的变体实现它
type Action interface {
	Kind() ActionKind
	isAction()
}

// Categorize 按关键词归类
type Categorize struct{}

// Prioritize 按紧急程度排优先级
type Prioritize struct{}

// DraftReply 起草回复
type DraftReply struct {
	Tone string
}

// Schedule 安排会议
type Schedule struct {
	When string
}

// Summarize 生成摘要
type Summarize struct {
	MaxWords int
}

// Archive 归档
type Archive struct {
	Folder string
}

// Flag 标记
type Flag struct {
	Reason string
}

// FollowUp 设置跟进提醒
type FollowUp struct {
	After time.Duration
}

// UnknownAction 无法识别的动作，执行总是失败
type UnknownAction struct {
	Name string
}

func (Categorize) Kind() ActionKind      { return ActionCategorize }
func (Prioritize) Kind() ActionKind      { return ActionPrioritize }
func (DraftReply) Kind() ActionKind      { return ActionDraftReply }
func (Schedule) Kind() ActionKind        { return ActionSchedule }
func (Summarize) Kind() ActionKind       { return ActionSummarize }
func (Archive) Kind() ActionKind         { return ActionArchive }
func (Flag) Kind() ActionKind            { return ActionFlag }
func (FollowUp) Kind() ActionKind        { return ActionFollowUp }
func (u UnknownAction) Kind() ActionKind { return ActionKind(u.Name) }

func (Categorize) isAction()    {}
func (Prioritize) isAction()    {}
func (DraftReply) isAction()    {}
func (Schedule) isAction()      {}
func (Summarize) isAction()     {}
func (Archive) isAction()       {}
func (Flag) isAction()          {}
func (FollowUp) isAction()      {}
func (UnknownAction) isAction() {}

// ParseAction 将动作标识与参数映射为具体变体
func ParseAction(kind string, params map[string]any) Action {
	switch ParseActionKind(kind) {
	case ActionCategorize:
		return Categorize{}
	case ActionPrioritize:
		return Prioritize{}
	case ActionDraftReply:
		tone, _ := contextString(params, "tone")
		return DraftReply{Tone: tone}
	case ActionSchedule:
		when, _ := contextString(params, "when")
		return Schedule{When: when}
	case ActionSummarize:
		return Summarize{MaxWords: intParam(params, "max_words")}
	case ActionArchive:
		folder, _ := contextString(params, "folder")
		return Archive{Folder: folder}
	case ActionFlag:
		reason, _ := contextString(params, "reason")
		return Flag{Reason: reason}
	case ActionFollowUp:
		var after time.Duration
		if s, ok := contextString(params, "after"); ok {
			after, _ = time.ParseDuration(s)
		}
		return FollowUp{After: after}
	default:
		return UnknownAction{Name: kind}
	}
}

func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// ActionResult 动作执行结果
type ActionResult struct {
	Success  bool       `json:"success"`
	Action   ActionKind `json:"action"`
	Category string     `json:"category,omitempty"`
	Priority string     `json:"priority,omitempty"`
	Output   string     `json:"output,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	Code     string     `json:"code,omitempty"`
	State    State      `json:"state"`
}

// =============================================================================
// ⚙️ 执行器
// =============================================================================

// categoryRules 归类关键词，按顺序匹配
var categoryRules = []struct {
	category string
	words    []string
}{
	{"meeting", []string{"meeting", "reschedule", "calendar", "invite", "agenda"}},
	{"finance", []string{"invoice", "payment", "receipt", "billing", "refund"}},
	{"newsletter", []string{"newsletter", "unsubscribe", "digest", "weekly"}},
	{"support", []string{"help", "issue", "problem", "error", "bug"}},
	{"security", []string{"password", "verify", "suspicious", "login"}},
}

var (
	highPriorityWords = []string{"urgent", "asap", "immediately", "deadline", "critical"}
	lowPriorityWords  = []string{"newsletter", "unsubscribe", "digest", "promotion"}
)

const (
	defaultArchiveFolder = "Archive"
	defaultFollowUpAfter = 72 * time.Hour
	defaultSummaryWords  = 50
)

// ActionExecutor 执行动作。归类与优先级为确定性关键词规则，起草与摘要使用生成器。
type ActionExecutor struct {
	generator llm.Generator
	config    SynthesisConfig
	logger    *zap.Logger
}

// NewActionExecutor 创建动作执行器
func NewActionExecutor(generator llm.Generator, config SynthesisConfig, logger *zap.Logger) *ActionExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionExecutor{
		generator: generator,
		config:    config,
		logger:    logger.With(zap.String("component", "action_executor")),
	}
}

// Execute 执行动作
func (e *ActionExecutor) Execute(ctx context.Context, action Action, email Email) ActionResult {
	result := ActionResult{Action: action.Kind()}

	switch a := action.(type) {
	case Categorize:
		result.Category = categorize(email)
		result.Output = "categorized as " + result.Category
		result.Success = true
	case Prioritize:
		result.Priority = prioritize(email)
		result.Output = "priority " + result.Priority
		result.Success = true
	case DraftReply:
		prompt := fmt.Sprintf("Draft a reply to this email.\nFrom: %s\nSubject: %s\n\n%s\n", email.From, email.Subject, email.Body)
		if a.Tone != "" {
			prompt += "\nUse a " + a.Tone + " tone."
		}
		e.generate(ctx, &result, prompt)
	case Schedule:
		when := a.When
		if when == "" {
			when = "next available slot"
		}
		result.Output = fmt.Sprintf("meeting proposed for %q at %s", email.Subject, when)
		result.Success = true
	case Summarize:
		words := a.MaxWords
		if words <= 0 {
			words = defaultSummaryWords
		}
		prompt := fmt.Sprintf("Summarise this email in at most %d words.\nSubject: %s\n\n%s\n", words, email.Subject, email.Body)
		e.generate(ctx, &result, prompt)
	case Archive:
		folder := a.Folder
		if folder == "" {
			folder = defaultArchiveFolder
		}
		result.Output = "archived to " + folder
		result.Success = true
	case Flag:
		reason := a.Reason
		if reason == "" {
			reason = "needs review"
		}
		result.Output = "flagged: " + reason
		result.Success = true
	case FollowUp:
		after := a.After
		if after <= 0 {
			after = defaultFollowUpAfter
		}
		result.Output = "follow-up scheduled in " + after.String()
		result.Success = true
	case UnknownAction:
		result.Reason = "Unknown action: " + a.Name
	default:
		result.Reason = fmt.Sprintf("Unknown action: %s", action.Kind())
	}

	if result.Success {
		result.State = StateSucceeded
	} else {
		result.State = StateFailed
	}
	e.logger.Debug("action executed",
		zap.String("email_id", email.ID),
		zap.String("action", string(result.Action)),
		zap.Bool("success", result.Success),
	)
	return result
}

func (e *ActionExecutor) generate(ctx context.Context, result *ActionResult, prompt string) {
	if e.generator == nil {
		result.Reason = ErrGeneratorNotSet.Message
		return
	}
	out, err := e.generator.Generate(ctx, prompt, e.config.Temperature, e.config.MaxTokens)
	if err != nil {
		result.Reason = "generation failed: " + err.Error()
		return
	}
	result.Output = strings.TrimSpace(out)
	result.Success = true
}

func categorize(email Email) string {
	text := strings.ToLower(email.Subject + " " + email.Body)
	for _, rule := range categoryRules {
		for _, w := range rule.words {
			if strings.Contains(text, w) {
				return rule.category
			}
		}
	}
	return "general"
}

func prioritize(email Email) string {
	text := strings.ToLower(email.Subject + " " + email.Body)
	for _, w := range highPriorityWords {
		if strings.Contains(text, w) {
			return "high"
		}
	}
	for _, w := range lowPriorityWords {
		if strings.Contains(text, w) {
			return "low"
		}
	}
	return "medium"
}
