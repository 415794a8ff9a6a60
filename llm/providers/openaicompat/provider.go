// Package openaicompat 提供 OpenAI 兼容 Chat Completions 接口的 Provider 实现。
// DeepSeek、Qwen、GLM、本地 vLLM/Ollama 等兼容服务只需调整 BaseURL 与 EndpointPath。
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentswarm/internal/tlsutil"
	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/types"
	"go.uber.org/zap"
)

// Config OpenAI 兼容 Provider 配置
type Config struct {
	ProviderName string        `yaml:"provider_name" json:"provider_name"`
	APIKey       string        `yaml:"api_key" json:"api_key" env:"API_KEY"`
	BaseURL      string        `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	DefaultModel string        `yaml:"default_model" json:"default_model" env:"MODEL"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	// EndpointPath 默认 "/v1/chat/completions"
	EndpointPath string `yaml:"endpoint_path" json:"endpoint_path"`
}

// Provider OpenAI 兼容 Provider
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Provider。client 为 nil 时使用 tlsutil 加固客户端。
func New(cfg Config, client *http.Client, logger *zap.Logger) *Provider {
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai-compat"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if client == nil {
		client = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("provider", cfg.ProviderName)),
	}
}

// Name 返回 Provider 名称
func (p *Provider) Name() string { return p.cfg.ProviderName }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	TopP        float32       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		FinishReason string      `json:"finish_reason"`
		Message      wireMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Completion 发送非流式补全请求
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "request has no messages").WithProvider(p.Name())
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}
	body := wireRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: string(m.Role), Content: m.Content, Name: m.Name})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "encode request").WithCause(err).WithProvider(p.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+p.cfg.EndpointPath, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "build request").WithCause(err).WithProvider(p.Name())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewError(types.ErrUpstreamTimeout, "request aborted").
				WithCause(err).WithProvider(p.Name())
		}
		return nil, types.NewError(types.ErrUpstreamError, "request failed").
			WithCause(err).WithRetryable(true).WithProvider(p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := readErrorMessage(resp.Body)
		p.logger.Warn("completion request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return nil, mapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "decode response").
			WithCause(err).WithProvider(p.Name())
	}
	return toChatResponse(wire, p.Name()), nil
}

func toChatResponse(w wireResponse, provider string) *llm.ChatResponse {
	out := &llm.ChatResponse{
		ID:       w.ID,
		Provider: provider,
		Model:    w.Model,
		Choices:  make([]llm.ChatChoice, 0, len(w.Choices)),
	}
	if w.Created != 0 {
		out.CreatedAt = time.Unix(w.Created, 0)
	}
	for _, c := range w.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message: llm.Message{
				Role:    llm.Role(c.Message.Role),
				Content: c.Message.Content,
				Name:    c.Message.Name,
			},
		})
	}
	if w.Usage != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     w.Usage.PromptTokens,
			CompletionTokens: w.Usage.CompletionTokens,
			TotalTokens:      w.Usage.TotalTokens,
		}
	}
	return out
}

// mapHTTPError 将 HTTP 状态码映射为带重试语义的 types.Error
func mapHTTPError(status int, msg, provider string) *types.Error {
	var code types.ErrorCode
	retryable := false

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		code = types.ErrAuthentication
	case status == http.StatusTooManyRequests:
		code = types.ErrRateLimited
		retryable = true
	case status == http.StatusNotFound:
		code = types.ErrModelNotFound
	case status == http.StatusBadRequest:
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "quota"), strings.Contains(lower, "credit"):
			code = types.ErrQuotaExceeded
		case strings.Contains(lower, "context length"), strings.Contains(lower, "too many tokens"):
			code = types.ErrContextTooLong
		default:
			code = types.ErrInvalidRequest
		}
	case status == http.StatusServiceUnavailable:
		code = types.ErrServiceUnavailable
		retryable = true
	case status >= http.StatusInternalServerError:
		code = types.ErrUpstreamError
		retryable = true
	default:
		code = types.ErrUpstreamError
	}

	return types.NewError(code, msg).
		WithHTTPStatus(status).
		WithRetryable(retryable).
		WithProvider(provider)
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}
