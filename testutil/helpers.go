package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// =============================================================================
// 🧪 测试辅助函数
// =============================================================================

// 单个测试的默认时限，覆盖一次完整的群体流水线
const defaultTestTimeout = 30 * time.Second

// TestContext 返回带默认超时的测试上下文，测试结束时自动取消
func TestContext(t *testing.T) context.Context {
	t.Helper()
	return TestContextWithTimeout(t, defaultTestTimeout)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// MustJSON 序列化为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
