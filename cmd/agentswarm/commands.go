package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentswarm/agent/swarm"
)

// =============================================================================
// 🐝 run 命令
// =============================================================================

// taskRequest run 命令的输入
type taskRequest struct {
	Description string
	Options     swarm.TaskOptions
}

func runTask(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	task := fs.String("task", "", "Task description")
	agents := fs.Int("agents", 0, "Number of participating agents (0 uses the configured default)")
	threshold := fs.Float64("threshold", 0, "Consensus threshold (0 uses the configured default)")
	metricsAddr := fs.String("metrics-addr", "", "Serve /metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*task) == "" {
		return errors.New("--task is required")
	}

	return withApp(*configPath, *metricsAddr, func(ctx context.Context, a *app) error {
		result, err := executeTask(ctx, a, taskRequest{
			Description: *task,
			Options:     swarm.TaskOptions{AgentCount: *agents, ConsensusThreshold: *threshold},
		})
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, result)
	})
}

// executeTask 用临时群体处理一个任务
func executeTask(ctx context.Context, a *app, req taskRequest) (*swarm.ConsensusResult, error) {
	engine := swarm.NewEngine(a.generator, a.swarmConfig, a.swarmOptions()...)
	defer engine.Close()

	return engine.ProcessTask(ctx, req.Description, nil, req.Options)
}

// =============================================================================
// 📬 triage 命令
// =============================================================================

// triageRequest triage 命令的输入
type triageRequest struct {
	Email   swarm.Email
	Execute bool
	// Outcome 为空时不反馈
	Outcome swarm.Outcome
}

// triageReport triage 命令的输出
type triageReport struct {
	Decision *swarm.DecisionOutcome `json:"decision"`
	Result   *swarm.ActionResult    `json:"result,omitempty"`
	Learning *swarm.LearningUpdate  `json:"learning,omitempty"`
	Restored int                    `json:"restored_agents"`
}

func runTriage(args []string) error {
	fs := flag.NewFlagSet("triage", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	from := fs.String("from", "", "Sender address")
	subject := fs.String("subject", "", "Email subject")
	body := fs.String("body", "", "Email body")
	execute := fs.Bool("execute", false, "Execute the top decision's action")
	outcome := fs.String("outcome", "", "Feed back the action outcome: success or failure")
	metricsAddr := fs.String("metrics-addr", "", "Serve /metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*subject) == "" && strings.TrimSpace(*body) == "" {
		return errors.New("--subject or --body is required")
	}

	req := triageRequest{
		Email: swarm.Email{
			ID:         uuid.NewString(),
			From:       *from,
			Subject:    *subject,
			Body:       *body,
			ReceivedAt: time.Now(),
		},
		Execute: *execute,
	}
	if *outcome != "" {
		o, err := parseOutcome(*outcome)
		if err != nil {
			return err
		}
		if !*execute {
			return errors.New("--outcome requires --execute")
		}
		req.Outcome = o
	}

	return withApp(*configPath, *metricsAddr, func(ctx context.Context, a *app) error {
		report, err := executeTriage(ctx, a, req)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, report)
	})
}

// executeTriage 恢复名册置信度，处理邮件，按需执行动作并反馈结果
func executeTriage(ctx context.Context, a *app, req triageRequest) (*triageReport, error) {
	s := swarm.NewSwarm(a.generator, a.swarmConfig, a.swarmOptions()...)
	defer s.Close()

	report := &triageReport{}
	restored, err := s.Restore(ctx)
	if err != nil {
		a.logger.Warn("starting with initial confidences", zap.Error(err))
	}
	report.Restored = restored

	decision, err := s.ProcessDecision(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	report.Decision = decision
	if !req.Execute {
		return report, nil
	}

	top, ok := decision.TopDecision()
	if !ok {
		return report, nil
	}
	result, err := s.ExecuteAction(ctx, top.AgentID, top, req.Email)
	if err != nil {
		return nil, err
	}
	report.Result = &result

	if req.Outcome != "" && result.State != swarm.StateRejected {
		update, err := s.RecordOutcome(ctx, top.AgentID, top, req.Outcome)
		if err != nil {
			return nil, err
		}
		report.Learning = &update
	}
	return report, nil
}

func parseOutcome(s string) (swarm.Outcome, error) {
	switch o := swarm.Outcome(strings.ToLower(strings.TrimSpace(s))); o {
	case swarm.OutcomeSuccess, swarm.OutcomeFailure:
		return o, nil
	default:
		return "", fmt.Errorf("unknown outcome %q (want success or failure)", s)
	}
}

// =============================================================================
// 🔧 公共流程
// =============================================================================

// withApp 加载配置、装配组件并在收到中断信号时取消
func withApp(configPath, metricsAddr string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting AgentSwarm",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil, metricsAddr, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			logger.Warn("shutdown completed with errors", zap.Error(err))
		}
	}()

	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
