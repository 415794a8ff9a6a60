// MockGenerator 文本生成协作方的测试模拟实现。
//
// 支持固定响应、按提示词路由、错误注入与调用记录。
package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrMockFailure 是 WithFailAfter 触发时返回的错误
var ErrMockFailure = errors.New("mock generator: configured to fail after N calls")

// MockGeneratorCall 记录单次调用
type MockGeneratorCall struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	Response    string
	Error       error
}

type route struct {
	marker   string
	response string
	err      error
}

// MockGenerator 是 llm.Generator 的模拟实现，可并发调用
type MockGenerator struct {
	mu sync.Mutex

	response     string
	err          error
	routes       []route
	generateFunc func(ctx context.Context, prompt string) (string, error)

	delay     time.Duration
	failAfter int

	calls []MockGeneratorCall
}

// NewMockGenerator 创建新的 MockGenerator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{response: "Mock response"}
}

// WithResponse 设置默认响应
func (m *MockGenerator) WithResponse(response string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置默认错误
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithRoute 提示词包含 marker 时返回指定响应。按注册顺序匹配。
func (m *MockGenerator) WithRoute(marker, response string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route{marker: marker, response: response})
	return m
}

// WithRouteError 提示词包含 marker 时返回错误
func (m *MockGenerator) WithRouteError(marker string, err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route{marker: marker, err: err})
	return m
}

// WithGenerateFunc 设置自定义生成函数，优先级高于路由与默认响应
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, prompt string) (string, error)) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
	return m
}

// WithDelay 设置响应延迟，延迟期间尊重 ctx 取消
func (m *MockGenerator) WithDelay(d time.Duration) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockGenerator) WithFailAfter(n int) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// Generate 实现 llm.Generator
func (m *MockGenerator) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	m.mu.Lock()
	delay := m.delay
	fn := m.generateFunc
	callNo := len(m.calls) + 1
	failAfter := m.failAfter
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			m.record(prompt, temperature, maxTokens, "", ctx.Err())
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	var (
		resp string
		err  error
	)
	switch {
	case failAfter > 0 && callNo > failAfter:
		err = ErrMockFailure
	case fn != nil:
		resp, err = fn(ctx, prompt)
	default:
		resp, err = m.resolve(prompt)
	}

	m.record(prompt, temperature, maxTokens, resp, err)
	return resp, err
}

func (m *MockGenerator) resolve(prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.routes {
		if strings.Contains(prompt, r.marker) {
			return r.response, r.err
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *MockGenerator) record(prompt string, temperature float64, maxTokens int, resp string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockGeneratorCall{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Response:    resp,
		Error:       err,
	})
}

// --- 调用记录 ---

// Calls 返回调用记录副本
func (m *MockGenerator) Calls() []MockGeneratorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockGeneratorCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsContaining 返回提示词包含 marker 的调用次数
func (m *MockGenerator) CallsContaining(marker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.Contains(c.Prompt, marker) {
			n++
		}
	}
	return n
}

// Reset 清空调用记录
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
